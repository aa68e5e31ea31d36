package server

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"gopkg.in/yaml.v3"

	"chat-gateway/respond"
)

//go:embed openapi.yaml
var openAPIYAML []byte

// OpenAPIDocument converte o documento embutido para JSON.
func OpenAPIDocument() ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(openAPIYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse openapi.yaml: %w", err)
	}
	return json.Marshal(doc)
}

func openAPIHandler(logger *slog.Logger) http.HandlerFunc {
	doc, err := OpenAPIDocument()
	return func(w http.ResponseWriter, r *http.Request) {
		if err != nil {
			logger.Error("openapi document unavailable", "error", err)
			respond.Detail(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	}
}
