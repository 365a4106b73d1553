// Package extract pulls JSON payloads out of free-form LLM responses.
//
// Model responses routinely wrap the requested JSON in explanatory prose or
// fenced code blocks. ExtractJSON tries the cheapest interpretation first and
// degrades gracefully instead of failing on decoration.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	apperrors "marketbrief/internal/errors"
)

var (
	fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	braceSpan   = regexp.MustCompile(`(?s)\{.*\}`)
	bracketSpan = regexp.MustCompile(`(?s)\[.*\]`)
)

// ExtractJSON extracts a JSON object from text. Attempts, in order:
// the whole text, the content of a fenced code block, and the first greedy
// brace-delimited substring.
func ExtractJSON(text string) (map[string]any, error) {
	raw, err := extract(text, braceSpan)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &apperrors.ExtractionError{Reason: "candidate payload is not a JSON object"}
	}
	return out, nil
}

// ExtractJSONArray extracts a JSON array from text using the same chain, with
// brackets as the span delimiters.
func ExtractJSONArray(text string) ([]any, error) {
	raw, err := extract(text, bracketSpan)
	if err != nil {
		return nil, err
	}

	var out []any
	if err := json.Unmarshal(raw, &out); err != nil {
		// A response may wrap the list in an object; fall back to the first
		// array-valued member.
		if obj, objErr := ExtractJSON(text); objErr == nil {
			for _, v := range obj {
				if arr, ok := v.([]any); ok {
					return arr, nil
				}
			}
		}
		return nil, &apperrors.ExtractionError{Reason: "candidate payload is not a JSON array"}
	}
	return out, nil
}

func extract(text string, span *regexp.Regexp) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &apperrors.ExtractionError{Reason: "empty response"}
	}

	// Whole text as JSON.
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	// Fenced code block.
	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		inner := strings.TrimSpace(m[1])
		if json.Valid([]byte(inner)) {
			return json.RawMessage(inner), nil
		}
		// The block may itself carry prose around the payload.
		if s := span.FindString(inner); s != "" && json.Valid([]byte(s)) {
			return json.RawMessage(s), nil
		}
	}

	// Greedy delimited substring.
	if s := span.FindString(trimmed); s != "" && json.Valid([]byte(s)) {
		return json.RawMessage(s), nil
	}

	return nil, &apperrors.ExtractionError{Reason: "no parseable JSON found in response"}
}

// Decode unmarshals an extracted object into a typed record.
func Decode(fields map[string]any, target any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return apperrors.Wrap(err, "re-encoding extracted fields")
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return &apperrors.ExtractionError{Reason: "extracted JSON does not match expected shape: " + err.Error()}
	}
	return nil
}
