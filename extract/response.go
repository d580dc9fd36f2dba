package extract

import (
	"encoding/json"
	"strings"
)

// ParseResponse decodes the JSON object embedded in a completion. It slices
// from the first '{' to the last '}' and decodes strictly, so prose around
// the object is tolerated. A response with several top-level objects, or
// prose holding stray braces, yields a slice that does not decode; the
// result is then nil, as it is when either brace is missing.
func ParseResponse(text string) map[string]any {
	text = strings.TrimSpace(text)
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil
	}
	return obj
}
