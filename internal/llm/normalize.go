package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// fenceRegex matches markdown code fence markers with an optional language tag.
var fenceRegex = regexp.MustCompile("```[A-Za-z0-9_-]*")

// NormalizeResponse strips fence markers, slices from the first '{' to the
// last '}', and parses the result as a JSON object. Malformed payloads are
// reported as ErrPayloadParse and never repaired.
func NormalizeResponse(raw string) (map[string]any, error) {
	cleaned := fenceRegex.ReplaceAllString(raw, "")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object found", ErrPayloadParse)
	}
	slice := cleaned[start : end+1]

	dec := json.NewDecoder(strings.NewReader(slice))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadParse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrPayloadParse)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrPayloadParse)
	}
	return payload, nil
}
