package calls

import (
	"context"
	"strings"
)

// NumberStore holds the uploaded dial list. Order is upload order; duplicates are kept.
type NumberStore interface {
	List(ctx context.Context) ([]string, error)
	Replace(ctx context.Context, numbers []string) error
}

// ParseNumbers splits pasted text on newlines and commas, trimming blanks.
func ParseNumbers(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
	return CleanNumbers(fields)
}

// CleanNumbers trims each number and drops empty ones.
func CleanNumbers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, n := range in {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
