package signals

import (
	"strings"

	"github.com/jacksenechal/humanebench-eval/internal/conversation"
)

// CasualThreshold is the tone value above which a conversation reads as casual.
const CasualThreshold = 0.35

// Labels returned by ToneLabel.
const (
	// LabelCasual is used when tone exceeds CasualThreshold.
	LabelCasual = "casual"
	// LabelNeutral is used otherwise.
	LabelNeutral = "neutral"
)

var casualMarkers = []string{"hey", "hi", "thanks", "cool", "great", "awesome"}

// Tone returns the fraction of casual markers that occur anywhere in the
// case-folded history and new input. Markers match as substrings, so "hi"
// also hits inside "this".
func Tone(history []conversation.Message, input string) float64 {
	parts := make([]string, 0, len(history)+1)
	for _, m := range history {
		parts = append(parts, m.Content)
	}
	parts = append(parts, input)
	text := strings.ToLower(strings.Join(parts, " "))

	hits := 0
	for _, marker := range casualMarkers {
		if strings.Contains(text, marker) {
			hits++
		}
	}
	return float64(hits) / float64(len(casualMarkers))
}

// ToneLabel maps a tone value to its label.
func ToneLabel(tone float64) string {
	if tone > CasualThreshold {
		return LabelCasual
	}
	return LabelNeutral
}
