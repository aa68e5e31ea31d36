// Package domain define contratos e tipos de domínio para rate limit e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar regras de negócio
// de detalhes de infraestrutura.
//
// O rate limit é de janela deslizante dupla: um teto por minuto e outro por
// hora, avaliados juntos. O teto por minuto é checado primeiro e é o motivo
// reportado quando os dois estourariam.
package domain
