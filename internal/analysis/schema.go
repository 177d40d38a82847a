// schema.go: validation of raw oracle output against the analysis result schema
package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// SchemaViolationError reports every field of an oracle response that failed
// validation. The oracle is untrusted; nothing downstream sees a result that
// did not pass this gate.
type SchemaViolationError struct {
	Fields []string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("analysis result failed schema validation: %s", strings.Join(e.Fields, ", "))
}

var validGapTypes = map[string]bool{
	string(GapShort): true, string(GapMedium): true, string(GapLong): true, string(GapExcessive): true,
}

var validSegmentTypes = map[string]bool{
	string(SegmentIntroduction): true, string(SegmentBody): true,
	string(SegmentConclusion): true, string(SegmentTransition): true,
}

var validSeverities = map[string]bool{
	string(SeverityLow): true, string(SeverityMedium): true, string(SeverityHigh): true,
}

// violations accumulates failing field paths so a single pass reports them all.
type violations struct {
	fields []string
}

func (v *violations) add(format string, args ...any) {
	v.fields = append(v.fields, fmt.Sprintf(format, args...))
}

// Validate checks a raw oracle response against the analysis result schema and
// returns the decoded result, or a *SchemaViolationError enumerating every
// failing field. Out-of-range values are rejected, never silently clamped.
func Validate(raw []byte) (*Result, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &SchemaViolationError{Fields: []string{"(not a JSON object)"}}
	}

	v := &violations{}

	requireString(doc, "transcript", v)
	duration, hasDuration := requireNumber(doc, "durationSeconds", v)
	if hasDuration && duration < 0 {
		v.add("durationSeconds: must be >= 0")
	}

	// Self-reported counts are overwritten during normalization but must still
	// be numeric when present.
	optionalNumber(doc, "wordCount", v)
	optionalNumber(doc, "wpm", v)
	optionalNumber(doc, "totalFillerWords", v)
	optionalNumber(doc, "averageGapDuration", v)

	validateTimestampedTranscript(doc, v)
	validateFillerWords(doc, v)
	validateGaps(doc, v)
	validateSegments(doc, v)
	validateIssues(doc, v)

	if score, ok := requireNumber(doc, "overallCoherenceScore", v); ok {
		if score < 0 || score > 10 {
			v.add("overallCoherenceScore: %v outside [0,10]", score)
		}
	}

	validateSuggestions(doc, v)

	if len(v.fields) > 0 {
		return nil, &SchemaViolationError{Fields: v.fields}
	}

	// Types are verified above, so decoding into the typed struct cannot fail
	// on any validated field.
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &SchemaViolationError{Fields: []string{fmt.Sprintf("(decode: %v)", err)}}
	}

	// Derived invariants hold by construction, regardless of what the oracle
	// self-reported.
	result.TotalFillerWords = len(result.FillerWords)
	result.AverageGapDuration = meanGapDuration(result.Gaps)

	return &result, nil
}

func meanGapDuration(gaps []Gap) float64 {
	if len(gaps) == 0 {
		return 0
	}
	var total float64
	for i := range gaps {
		total += gaps[i].Duration
	}
	return total / float64(len(gaps))
}

func requireString(doc map[string]any, key string, v *violations) (string, bool) {
	raw, ok := doc[key]
	if !ok {
		v.add("%s: missing", key)
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		v.add("%s: expected string", key)
		return "", false
	}
	return s, true
}

func requireNumber(doc map[string]any, key string, v *violations) (float64, bool) {
	raw, ok := doc[key]
	if !ok {
		v.add("%s: missing", key)
		return 0, false
	}
	n, ok := raw.(float64)
	if !ok {
		v.add("%s: expected number", key)
		return 0, false
	}
	return n, true
}

func optionalNumber(doc map[string]any, key string, v *violations) {
	raw, ok := doc[key]
	if !ok {
		return
	}
	if _, ok := raw.(float64); !ok {
		v.add("%s: expected number", key)
	}
}

func requireArray(doc map[string]any, key string, v *violations) ([]any, bool) {
	raw, ok := doc[key]
	if !ok {
		v.add("%s: missing", key)
		return nil, false
	}
	arr, ok := raw.([]any)
	if !ok {
		v.add("%s: expected array", key)
		return nil, false
	}
	return arr, true
}

func entryObject(arr []any, key string, i int, v *violations) (map[string]any, bool) {
	obj, ok := arr[i].(map[string]any)
	if !ok {
		v.add("%s[%d]: expected object", key, i)
		return nil, false
	}
	return obj, true
}

func validateTimestampedTranscript(doc map[string]any, v *violations) {
	raw, ok := doc["timestampedTranscript"]
	if !ok || raw == nil {
		return // optional
	}
	arr, ok := raw.([]any)
	if !ok {
		v.add("timestampedTranscript: expected array")
		return
	}
	for i := range arr {
		obj, ok := entryObject(arr, "timestampedTranscript", i, v)
		if !ok {
			continue
		}
		start, startOK := obj["startTime"].(float64)
		if !startOK {
			v.add("timestampedTranscript[%d].startTime: expected number", i)
		}
		end, endOK := obj["endTime"].(float64)
		if !endOK {
			v.add("timestampedTranscript[%d].endTime: expected number", i)
		}
		if startOK && endOK && start >= end {
			v.add("timestampedTranscript[%d]: startTime must be < endTime", i)
		}

		text, ok := obj["text"].(string)
		if !ok {
			v.add("timestampedTranscript[%d].text: expected string", i)
			continue
		}
		if strings.TrimSpace(text) == "" {
			v.add("timestampedTranscript[%d].text: empty", i)
			continue
		}
		if n := terminalMarkCount(text); n != 1 {
			v.add("timestampedTranscript[%d].text: expected exactly one sentence, found %d terminal marks", i, n)
		}
	}
}

// terminalMarkCount counts sentence-terminal punctuation marks: '.', '!' or
// '?' followed by whitespace or end-of-string. A decimal point inside "3.5"
// does not count.
func terminalMarkCount(text string) int {
	runes := []rune(text)
	count := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i == len(runes)-1 || unicode.IsSpace(runes[i+1]) {
			count++
		}
	}
	return count
}

func validateFillerWords(doc map[string]any, v *violations) {
	arr, ok := requireArray(doc, "fillerWords", v)
	if !ok {
		return
	}
	for i := range arr {
		obj, ok := entryObject(arr, "fillerWords", i, v)
		if !ok {
			continue
		}
		if _, ok := obj["word"].(string); !ok {
			v.add("fillerWords[%d].word: expected string", i)
		}
		if _, ok := obj["timestamp"].(float64); !ok {
			v.add("fillerWords[%d].timestamp: expected number", i)
		}
	}
}

func validateGaps(doc map[string]any, v *violations) {
	arr, ok := requireArray(doc, "gaps", v)
	if !ok {
		return
	}
	for i := range arr {
		obj, ok := entryObject(arr, "gaps", i, v)
		if !ok {
			continue
		}
		if _, ok := obj["timestamp"].(float64); !ok {
			v.add("gaps[%d].timestamp: expected number", i)
		}
		if d, ok := obj["duration"].(float64); !ok {
			v.add("gaps[%d].duration: expected number", i)
		} else if d < 0 {
			v.add("gaps[%d].duration: must be >= 0", i)
		}
		if t, ok := obj["type"].(string); !ok {
			v.add("gaps[%d].type: expected string", i)
		} else if !validGapTypes[t] {
			v.add("gaps[%d].type: %q outside {short, medium, long, excessive}", i, t)
		}
	}
}

func validateSegments(doc map[string]any, v *violations) {
	arr, ok := requireArray(doc, "speechSegments", v)
	if !ok {
		return
	}
	for i := range arr {
		obj, ok := entryObject(arr, "speechSegments", i, v)
		if !ok {
			continue
		}
		if t, ok := obj["type"].(string); !ok {
			v.add("speechSegments[%d].type: expected string", i)
		} else if !validSegmentTypes[t] {
			v.add("speechSegments[%d].type: %q outside {introduction, body, conclusion, transition}", i, t)
		}
		if _, ok := obj["startTime"].(float64); !ok {
			v.add("speechSegments[%d].startTime: expected number", i)
		}
		if _, ok := obj["endTime"].(float64); !ok {
			v.add("speechSegments[%d].endTime: expected number", i)
		}
		if _, ok := obj["content"].(string); !ok {
			v.add("speechSegments[%d].content: expected string", i)
		}
		if s, ok := obj["coherenceScore"].(float64); !ok {
			v.add("speechSegments[%d].coherenceScore: expected number", i)
		} else if s < 0 || s > 10 {
			v.add("speechSegments[%d].coherenceScore: %v outside [0,10]", i, s)
		}
	}
}

func validateIssues(doc map[string]any, v *violations) {
	arr, ok := requireArray(doc, "coherenceIssues", v)
	if !ok {
		return
	}
	for i := range arr {
		obj, ok := entryObject(arr, "coherenceIssues", i, v)
		if !ok {
			continue
		}
		if _, ok := obj["startTime"].(float64); !ok {
			v.add("coherenceIssues[%d].startTime: expected number", i)
		}
		if _, ok := obj["endTime"].(float64); !ok {
			v.add("coherenceIssues[%d].endTime: expected number", i)
		}
		if _, ok := obj["issue"].(string); !ok {
			v.add("coherenceIssues[%d].issue: expected string", i)
		}
		if _, ok := obj["suggestion"].(string); !ok {
			v.add("coherenceIssues[%d].suggestion: expected string", i)
		}
		if s, ok := obj["severity"].(string); !ok {
			v.add("coherenceIssues[%d].severity: expected string", i)
		} else if !validSeverities[s] {
			v.add("coherenceIssues[%d].severity: %q outside {low, medium, high}", i, s)
		}
	}
}

func validateSuggestions(doc map[string]any, v *violations) {
	arr, ok := requireArray(doc, "suggestions", v)
	if !ok {
		return
	}
	for i := range arr {
		if _, ok := arr[i].(string); !ok {
			v.add("suggestions[%d]: expected string", i)
		}
	}
}
