package evaluator

import (
	"encoding/json"
	"strings"
)

var fenceMarkers = strings.NewReplacer("```json", "", "```", "")

// ExtractStructured pulls the scoring object out of free-form model output.
//
// Code fence markers are removed, then the text between the first '{' and the
// last '}' (inclusive) is decoded. Any failure yields (nil, false); it never
// returns an error. This is bracket matching, not a tolerant parser: braces
// inside string values ahead of the real object can mis-bound the slice, and
// that case simply falls through to the fallback record.
func ExtractStructured(text string) (*ParsedRecord, bool) {
	cleaned := strings.TrimSpace(fenceMarkers.Replace(text))
	first := strings.Index(cleaned, "{")
	last := strings.LastIndex(cleaned, "}")
	if first < 0 || last < 0 || last <= first {
		return nil, false
	}

	var parsed ParsedRecord
	if err := json.Unmarshal([]byte(cleaned[first:last+1]), &parsed); err != nil {
		return nil, false
	}
	return &parsed, true
}
