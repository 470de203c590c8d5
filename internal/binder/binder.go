// Package binder substitutes {{key}} placeholders in text elements.
package binder

import (
	"regexp"

	"github.com/ivlev/template2video/internal/scene"
)

// PlaceholderRegex captures the identifier of a {{identifier}} placeholder.
var PlaceholderRegex = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Bind returns a copy of s with the placeholders of every text element
// resolved against data. Keys missing from data are left verbatim; non-text
// elements are copied unchanged. s itself is never modified.
func Bind(s scene.Scene, data map[string]string) scene.Scene {
	out := s.Clone()
	for i, e := range out.Elements {
		text, ok := e.Body.(scene.Text)
		if !ok {
			continue
		}
		text.Content = Replace(text.Content, data)
		out.Elements[i].Body = text
	}
	return out
}

// Replace resolves the placeholders of a single string.
func Replace(content string, data map[string]string) string {
	if len(data) == 0 {
		return content
	}
	return PlaceholderRegex.ReplaceAllStringFunc(content, func(match string) string {
		key := PlaceholderRegex.FindStringSubmatch(match)[1]
		if v, ok := data[key]; ok {
			return v
		}
		return match
	})
}

// Unresolved lists the placeholder keys left in the text elements of s, in
// order of appearance and without duplicates.
func Unresolved(s scene.Scene) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, e := range s.Elements {
		text, ok := e.Body.(scene.Text)
		if !ok {
			continue
		}
		for _, m := range PlaceholderRegex.FindAllStringSubmatch(text.Content, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				keys = append(keys, m[1])
			}
		}
	}
	return keys
}
