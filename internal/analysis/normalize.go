// normalize.go: authoritative word count and pace, recomputed from transcript text
package analysis

import (
	"math"
	"strings"
	"unicode"
)

// Normalize overwrites the oracle's self-reported wordCount and wpm with
// values recomputed from the transcript text. Generative models are known to
// miscount, so this runs unconditionally on every analysis and every retry.
func Normalize(result *Result) {
	text := canonicalText(result)
	result.WordCount = countWords(text)

	if result.DurationSeconds > 0 {
		result.WPM = int(math.Round(float64(result.WordCount) / (result.DurationSeconds / 60)))
	} else {
		result.WPM = 0
	}
}

// canonicalText prefers the timestamped transcript, space-joined in order,
// falling back to the flat transcript when it is absent or empty.
func canonicalText(result *Result) string {
	if len(result.TimestampedTranscript) > 0 {
		parts := make([]string, 0, len(result.TimestampedTranscript))
		for i := range result.TimestampedTranscript {
			parts = append(parts, result.TimestampedTranscript[i].Text)
		}
		joined := strings.Join(parts, " ")
		if strings.TrimSpace(joined) != "" {
			return joined
		}
	}
	return result.Transcript
}

// countWords tokenizes on whitespace runs, strips leading and trailing
// non-word, non-apostrophe characters from each token, and drops tokens that
// become empty.
func countWords(text string) int {
	count := 0
	for _, token := range strings.Fields(text) {
		if trimToken(token) != "" {
			count++
		}
	}
	return count
}

func trimToken(token string) string {
	return strings.TrimFunc(token, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '’'
	})
}
