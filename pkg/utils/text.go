// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var sentenceEnd = regexp.MustCompile(`[.!?]+(\s+|$)`)

// SplitSentences splits text into sentences on terminal punctuation.
// Returns nil when no sentence boundary is found.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[last:loc[1]])
		if s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if last == 0 {
		return nil
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// TruncateSentences keeps at most maxSentences sentences. When no sentence
// boundary can be found, falls back to a character cut at fallbackChars.
func TruncateSentences(text string, maxSentences, fallbackChars int) string {
	text = strings.TrimSpace(text)
	sentences := SplitSentences(text)
	if sentences == nil {
		return TruncateChars(text, fallbackChars)
	}
	if len(sentences) <= maxSentences {
		return text
	}
	return strings.Join(sentences[:maxSentences], " ")
}

// TruncateChars cuts text at maxLen characters, appending an ellipsis.
func TruncateChars(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	cut := strings.TrimSpace(text[:maxLen])
	return cut + "..."
}

// ParseFlexibleDate accepts the date layouts upstream payloads and model
// responses emit in practice.
func ParseFlexibleDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02", "January 2, 2006", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}
