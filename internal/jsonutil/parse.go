// Package jsonutil provides helpers for reading JSON out of model replies and
// writing JSON documents that keep non-ASCII text readable.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SnippetLimit is the default number of characters kept by Snippet.
const SnippetLimit = 200

// StripMarkdownFences removes ```json ... ``` or ``` ... ``` wrapping from text.
// Returns the content between the fences, or the original text if no fences are found.
func StripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	endIdx := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}

	return strings.Join(lines[1:endIdx], "\n")
}

// ExtractObject returns the outermost {...} span of text, ignoring any prose around it.
func ExtractObject(text string) (string, error) {
	start := strings.Index(text, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON object found")
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return "", fmt.Errorf("no closing } found")
	}
	return text[start : end+1], nil
}

// ParseObject strips fences from a raw model reply, extracts the JSON object
// and unmarshals it into T. Errors carry a short preview of the offending text.
func ParseObject[T any](raw string) (T, error) {
	var result T

	jsonStr, err := ExtractObject(StripMarkdownFences(raw))
	if err != nil {
		return result, fmt.Errorf("%w (raw length: %d)", err, len(raw))
	}

	dec := json.NewDecoder(strings.NewReader(jsonStr))
	if err := dec.Decode(&result); err != nil {
		var zero T
		return zero, fmt.Errorf("invalid JSON: %w (text: %s)", err, Snippet(jsonStr, SnippetLimit))
	}
	return result, nil
}

// Snippet returns at most limit characters of s, appending "..." when it was cut.
// The cut never splits a multi-byte character.
func Snippet(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// MarshalVerbatim encodes v as indented JSON without escaping HTML characters.
// Non-ASCII text is written as UTF-8, never as \u escapes.
func MarshalVerbatim(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
