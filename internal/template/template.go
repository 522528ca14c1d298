// Package template substitutes named {key} placeholders in notification text.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

// Render substitutes every {key} occurrence in title and message with the
// mapping's value for key, coerced to text.
//
// Rendering fails soft: if the mapping is nil or any referenced key is
// missing, both strings are returned unrendered. Callers get either a fully
// rendered pair or the originals, never a partial substitution.
func Render(title, message string, data map[string]any) (string, string) {
	if data == nil {
		return title, message
	}
	if !keysPresent(title, data) || !keysPresent(message, data) {
		return title, message
	}
	return substitute(title, data), substitute(message, data)
}

func keysPresent(s string, data map[string]any) bool {
	for _, m := range placeholderRe.FindAllStringSubmatch(s, -1) {
		if _, ok := data[m[1]]; !ok {
			return false
		}
	}
	return true
}

func substitute(s string, data map[string]any) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(ph string) string {
		key := strings.Trim(ph, "{}")
		return fmt.Sprint(data[key])
	})
}
