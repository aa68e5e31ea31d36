// Provedor falso compatível com /chat/completions, para subir a API sem
// chave real:
//
//	go run ./teste-validacao/provedor-falso
//	LLM_BASE_URL=http://localhost:8081/v1 GEMINI_API_KEY=fake go run ./cmd/chat-api serve
package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"chat-gateway/logging"
	"chat-gateway/tutor/fakeprovider"
)

func main() {
	logger := logging.New(true, os.Stderr)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}
	reply := "Resposta do provedor falso: requisição recebida com sucesso!"
	if v := os.Getenv("FAKE_REPLY"); v != "" {
		reply = v
	}

	var opts []fakeprovider.Option
	if d, err := time.ParseDuration(os.Getenv("FAKE_DELAY")); err == nil {
		opts = append(opts, fakeprovider.WithDelay(d))
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           logging.Requests(logger)(fakeprovider.New(reply, opts...)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("fake provider listening", "addr", addr, "base_url", "http://localhost"+addr+"/v1")
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("fake provider stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
