package extract

import (
	"testing"

	apperrors "marketbrief/internal/errors"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantKey string
		wantVal any
	}{
		{
			name:    "bare object",
			text:    `{"score": 7}`,
			wantKey: "score",
			wantVal: float64(7),
		},
		{
			name:    "fenced json block",
			text:    "Here is the analysis:\n```json\n{\"score\": 8}\n```\nLet me know if you need more.",
			wantKey: "score",
			wantVal: float64(8),
		},
		{
			name:    "fenced block without language tag",
			text:    "```\n{\"score\": 3}\n```",
			wantKey: "score",
			wantVal: float64(3),
		},
		{
			name:    "object embedded in prose",
			text:    `Sure! The result is {"score": 5} as requested.`,
			wantKey: "score",
			wantVal: float64(5),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.text)
			if err != nil {
				t.Fatalf("ExtractJSON() error: %v", err)
			}
			if got[tt.wantKey] != tt.wantVal {
				t.Errorf("got[%q] = %v, want %v", tt.wantKey, got[tt.wantKey], tt.wantVal)
			}
		})
	}
}

func TestExtractJSONFailures(t *testing.T) {
	for _, text := range []string{"", "   ", "no json here at all", "{broken"} {
		_, err := ExtractJSON(text)
		if err == nil {
			t.Errorf("ExtractJSON(%q) succeeded, want error", text)
			continue
		}
		var ee *apperrors.ExtractionError
		if !apperrors.As(err, &ee) {
			t.Errorf("ExtractJSON(%q) error = %T, want ExtractionError", text, err)
		}
	}
}

func TestExtractJSONArray(t *testing.T) {
	got, err := ExtractJSONArray("Events found:\n```json\n[{\"headline\": \"a\"}, {\"headline\": \"b\"}]\n```")
	if err != nil {
		t.Fatalf("ExtractJSONArray() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
}

func TestExtractJSONArrayObjectWrapped(t *testing.T) {
	// Models sometimes wrap the requested array in an envelope object.
	got, err := ExtractJSONArray(`{"events": [{"headline": "a"}]}`)
	if err != nil {
		t.Fatalf("ExtractJSONArray() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	obj, ok := got[0].(map[string]any)
	if !ok || obj["headline"] != "a" {
		t.Errorf("element = %v, want headline object", got[0])
	}
}

func TestDecode(t *testing.T) {
	type record struct {
		Score float64 `json:"score"`
		Label string  `json:"label"`
	}
	var r record
	if err := Decode(map[string]any{"score": 6.5, "label": "high"}, &r); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if r.Score != 6.5 || r.Label != "high" {
		t.Errorf("decoded %+v", r)
	}
}
