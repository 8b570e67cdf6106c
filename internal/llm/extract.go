package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when no parseable JSON document could be located in
// the model's text.
var ErrNoJSON = errors.New("no JSON found in model output")

// ExtractJSON locates the JSON document inside free-form model text. Models
// routinely wrap JSON in markdown fences or surround it with prose; this
// strips ```json fences first and then falls back to the first balanced
// array or object in the text. Callers unmarshal the returned string and
// apply their own documented fallback when ErrNoJSON (or a later unmarshal
// error) occurs; a parse failure is never fatal to a run.
func ExtractJSON(text string) (string, error) {
	text = stripFences(text)

	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) && trimmed != "" {
		return trimmed, nil
	}

	arrStart := strings.IndexByte(trimmed, '[')
	objStart := strings.IndexByte(trimmed, '{')

	// Try whichever document starts first, then the other.
	order := []int{arrStart, objStart}
	if objStart >= 0 && (arrStart < 0 || objStart < arrStart) {
		order = []int{objStart, arrStart}
	}

	for _, start := range order {
		if start < 0 {
			continue
		}
		if doc := balancedFrom(trimmed, start); doc != "" && json.Valid([]byte(doc)) {
			return doc, nil
		}
	}

	return "", ErrNoJSON
}

// Unmarshal extracts the JSON document from text and decodes it into v.
func Unmarshal(text string, v any) error {
	doc, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(doc), v)
}

// stripFences removes a markdown code fence around the payload, if present.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)

	idx := strings.Index(trimmed, "```")
	if idx < 0 {
		return trimmed
	}

	rest := trimmed[idx+3:]
	// Drop a language tag like "json" on the fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "" || isFenceTag(firstLine) {
			rest = rest[nl+1:]
		}
	}

	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}

	return strings.TrimSpace(rest)
}

func isFenceTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// balancedFrom returns the shortest balanced JSON array or object starting
// at start, honoring string literals and escapes. Empty when unbalanced.
func balancedFrom(text string, start int) string {
	open := text[start]
	var close byte
	switch open {
	case '[':
		close = ']'
	case '{':
		close = '}'
	default:
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}

	return ""
}
