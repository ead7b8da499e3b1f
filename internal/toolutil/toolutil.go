// Package toolutil provides shared input helpers for the go_youtube MCP tools.
package toolutil

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingInput is wrapped by RequireString for empty required fields.
var ErrMissingInput = errors.New("missing input")

// RequireString returns the trimmed value or an error naming the field.
func RequireString(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", fmt.Errorf("%s is required: %w", field, ErrMissingInput)
	}
	return v, nil
}

// CleanList trims every item, drops empty ones and removes duplicates keeping the first.
func CleanList(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

// SplitTerms splits a free-text query into whitespace separated terms.
func SplitTerms(query string) []string {
	return strings.Fields(query)
}
