// Package ratelimit fornece adapters HTTP (net/http) para rate limit e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela deslizante, semáforo, estatísticas)
//   - ratelimit (este pacote): middlewares HTTP + extração de chave + tradução para status/headers
//
// Fluxo na API de chat:
//
//   1) Rotas de health passam direto
//   2) Extrai a chave do cliente (header/XFF/IP)
//   3) Chama a camada application para obter a decisão (minuto, depois hora)
//   4) Se bloqueado, responde 429 com Retry-After e {"detail": motivo}
//   5) Se permitido, chama o próximo handler
//
// O estado é por instância: com N réplicas o limite efetivo global é N vezes
// o configurado. Variáveis RATE_PER_MINUTE, RATE_PER_HOUR, CONCURRENCY_MAX e
// CONCURRENCY_TIMEOUT controlam o comportamento (ver pacote config).
package ratelimit
