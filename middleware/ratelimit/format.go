// utilitário pequeno para formatação de valores numéricos em headers.
//    Evita puxar fmt só para converter int em string.

package ratelimit

import "strconv"

func formatInt(v int) string { return strconv.Itoa(v) }
