package chat

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"chat-gateway/respond"
)

// Request é o corpo de POST /api/v1/chat/. O histórico fica como any porque
// a filtragem entrada a entrada é do sanitizer.
type Request struct {
	Message             *string `json:"message" validate:"required"`
	ConversationHistory any     `json:"conversation_history,omitempty"`
}

// Response é o corpo de sucesso.
type Response struct {
	Response       string    `json:"response"`
	ConversationID string    `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// TipResponse é o corpo de GET /api/v1/chat/quick-tip.
type TipResponse struct {
	Tip string `json:"tip"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// loc usa o nome JSON do campo, não o nome Go
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeRequest lê e valida o corpo. Qualquer falha vira lista de FieldError
// para o 422.
func decodeRequest(body io.Reader) (Request, []respond.FieldError) {
	var req Request
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		return Request{}, []respond.FieldError{decodeError(err)}
	}
	// só um valor JSON por corpo; lixo depois do objeto é JSON inválido
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Request{}, []respond.FieldError{jsonInvalid}
	}

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Request{}, []respond.FieldError{{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"}}
		}
		out := make([]respond.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldError(fe))
		}
		return Request{}, out
	}
	return req, nil
}

func decodeError(err error) respond.FieldError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return respond.FieldError{
			Loc:  []string{"body", typeErr.Field},
			Msg:  "Input should be a valid " + typeErr.Type.String(),
			Type: typeErr.Type.String() + "_type",
		}
	}
	if errors.Is(err, io.EOF) {
		return respond.FieldError{Loc: []string{"body"}, Msg: "Field required", Type: "missing"}
	}
	return jsonInvalid
}

var jsonInvalid = respond.FieldError{Loc: []string{"body"}, Msg: "JSON decode error", Type: "json_invalid"}

func fieldError(fe validator.FieldError) respond.FieldError {
	loc := []string{"body", fe.Field()}
	switch fe.Tag() {
	case "required":
		return respond.FieldError{Loc: loc, Msg: "Field required", Type: "missing"}
	default:
		return respond.FieldError{Loc: loc, Msg: "Invalid value (" + fe.Tag() + ")", Type: "value_error"}
	}
}
