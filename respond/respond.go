// Package respond padroniza as respostas JSON da API.
//
// Todo erro sai como {"detail": ...}, no mesmo formato para 400, 401, 404,
// 422, 429 e 500.
package respond

import (
	"encoding/json"
	"net/http"
)

// JSON escreve v com o status informado.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Detail escreve {"detail": msg}.
func Detail(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"detail": msg})
}

// FieldError é um item do corpo de 422.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// Unprocessable escreve 422 com a lista de campos inválidos.
func Unprocessable(w http.ResponseWriter, errs []FieldError) {
	JSON(w, http.StatusUnprocessableEntity, map[string][]FieldError{"detail": errs})
}
