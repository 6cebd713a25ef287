// Package components renders the HTML fragments served by the web front-end.
// Components are written in .templ files; run go generate after editing them.
package components

import (
	"fmt"
	"strings"
)

//go:generate templ generate

// formatEUR renders a ticket price without trailing zero cents.
func formatEUR(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("€%d", int64(v))
	}
	return fmt.Sprintf("€%.2f", v)
}

func capacityNote(capacity int) string {
	if capacity <= 0 {
		return ""
	}
	return fmt.Sprintf(" · %d people", capacity)
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
