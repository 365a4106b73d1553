package utils

import (
	"strings"
	"testing"
	"time"
)

func TestTruncateSentences(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		maxSentences int
		want         string
	}{
		{
			name:         "under limit unchanged",
			text:         "Markets fell sharply. Oil rose.",
			maxSentences: 2,
			want:         "Markets fell sharply. Oil rose.",
		},
		{
			name:         "over limit cut at boundary",
			text:         "First point. Second point. Third point.",
			maxSentences: 2,
			want:         "First point. Second point.",
		},
		{
			name:         "single sentence kept whole",
			text:         "Only one sentence here.",
			maxSentences: 1,
			want:         "Only one sentence here.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateSentences(tt.text, tt.maxSentences, 150)
			if got != tt.want {
				t.Errorf("TruncateSentences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateSentencesFallbackToChars(t *testing.T) {
	// No terminal punctuation anywhere, so the sentence splitter finds
	// nothing and the character fallback applies.
	text := strings.Repeat("word ", 60)
	got := TruncateSentences(text, 2, 150)
	if len(got) > 150+len("...") {
		t.Errorf("fallback cut produced %d chars, want at most %d", len(got), 150+len("..."))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("fallback cut should end with ellipsis, got %q", got)
	}
}

func TestParseFlexibleDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-08-30", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)},
		{"2026-08-30T15:04:05Z", time.Date(2026, 8, 30, 15, 4, 5, 0, time.UTC)},
		{"August 30, 2026", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)},
		{"Aug 30, 2026", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseFlexibleDate(tt.in)
		if err != nil {
			t.Errorf("ParseFlexibleDate(%q) error: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseFlexibleDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseFlexibleDate("not a date"); err == nil {
		t.Error("expected error for unrecognized date")
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(1.5); got != "+1.50%" {
		t.Errorf("FormatPercent(1.5) = %q", got)
	}
	if got := FormatPercent(-0.42); got != "-0.42%" {
		t.Errorf("FormatPercent(-0.42) = %q", got)
	}
	if got := FormatPercent(0); got != "0.00%" {
		t.Errorf("FormatPercent(0) = %q", got)
	}
}
