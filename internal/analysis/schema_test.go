package analysis

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validPayload returns a fully valid oracle response document that individual
// tests mutate to provoke specific violations.
func validPayload() map[string]any {
	return map[string]any{
		"transcript": "Good morning everyone. Today I want to talk about bees.",
		"timestampedTranscript": []any{
			map[string]any{"startTime": 0.0, "endTime": 2.5, "text": "Good morning everyone."},
			map[string]any{"startTime": 2.5, "endTime": 6.0, "text": "Today I want to talk about bees."},
		},
		"durationSeconds": 6.0,
		"wordCount":       10.0,
		"wpm":             100.0,
		"fillerWords": []any{
			map[string]any{"word": "um", "timestamp": 1.2},
		},
		"totalFillerWords": 1.0,
		"gaps": []any{
			map[string]any{"timestamp": 2.5, "duration": 0.8, "type": "short"},
			map[string]any{"timestamp": 4.0, "duration": 2.2, "type": "long"},
		},
		"averageGapDuration": 1.5,
		"speechSegments": []any{
			map[string]any{"type": "introduction", "startTime": 0.0, "endTime": 2.5, "content": "Greeting", "coherenceScore": 8.0},
			map[string]any{"type": "body", "startTime": 2.5, "endTime": 6.0, "content": "Topic statement", "coherenceScore": 7.5},
		},
		"coherenceIssues": []any{
			map[string]any{"startTime": 2.5, "endTime": 3.0, "issue": "abrupt topic change", "suggestion": "add a transition", "severity": "low"},
		},
		"overallCoherenceScore": 7.5,
		"suggestions":           []any{"Slow down at the start."},
	}
}

func marshalPayload(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func TestValidateAcceptsValidPayload(t *testing.T) {
	t.Parallel()

	result, err := Validate(marshalPayload(t, validPayload()))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 6.0, result.DurationSeconds)
	assert.Len(t, result.TimestampedTranscript, 2)
	assert.Len(t, result.Gaps, 2)
	assert.Equal(t, GapLong, result.Gaps[1].Type)
	assert.Equal(t, SegmentIntroduction, result.SpeechSegments[0].Type)
	assert.Equal(t, SeverityLow, result.CoherenceIssues[0].Severity)
	assert.InDelta(t, 7.5, result.OverallCoherenceScore, 1e-9)
}

func TestValidateRejectsNonJSON(t *testing.T) {
	t.Parallel()

	result, err := Validate([]byte("not json at all"))
	assert.Nil(t, result)

	var sv *SchemaViolationError
	require.ErrorAs(t, err, &sv)
}

func TestValidateRejectsUnknownGapType(t *testing.T) {
	t.Parallel()

	doc := validPayload()
	doc["gaps"] = []any{
		map[string]any{"timestamp": 2.5, "duration": 0.8, "type": "huge"},
	}

	result, err := Validate(marshalPayload(t, doc))
	assert.Nil(t, result)

	var sv *SchemaViolationError
	require.ErrorAs(t, err, &sv)
	assert.Contains(t, sv.Fields, `gaps[0].type: "huge" outside {short, medium, long, excessive}`)
}

func TestValidateRejectsOutOfRangeScores(t *testing.T) {
	t.Parallel()

	t.Run("overall coherence above ten", func(t *testing.T) {
		t.Parallel()
		doc := validPayload()
		doc["overallCoherenceScore"] = 10.5

		_, err := Validate(marshalPayload(t, doc))
		var sv *SchemaViolationError
		require.ErrorAs(t, err, &sv)
		assert.Contains(t, sv.Fields, "overallCoherenceScore: 10.5 outside [0,10]")
	})

	t.Run("segment coherence negative", func(t *testing.T) {
		t.Parallel()
		doc := validPayload()
		doc["speechSegments"] = []any{
			map[string]any{"type": "body", "startTime": 0.0, "endTime": 1.0, "content": "x", "coherenceScore": -1.0},
		}

		_, err := Validate(marshalPayload(t, doc))
		var sv *SchemaViolationError
		require.ErrorAs(t, err, &sv)
		assert.Contains(t, sv.Fields, "speechSegments[0].coherenceScore: -1 outside [0,10]")
	})

	t.Run("negative gap duration", func(t *testing.T) {
		t.Parallel()
		doc := validPayload()
		doc["gaps"] = []any{
			map[string]any{"timestamp": 1.0, "duration": -0.5, "type": "short"},
		}

		_, err := Validate(marshalPayload(t, doc))
		var sv *SchemaViolationError
		require.ErrorAs(t, err, &sv)
		assert.Contains(t, sv.Fields, "gaps[0].duration: must be >= 0")
	})
}

func TestValidateCollectsAllViolations(t *testing.T) {
	t.Parallel()

	doc := validPayload()
	delete(doc, "transcript")
	doc["durationSeconds"] = -3.0
	doc["overallCoherenceScore"] = 12.0
	doc["suggestions"] = []any{"ok", 7.0}

	_, err := Validate(marshalPayload(t, doc))
	var sv *SchemaViolationError
	require.ErrorAs(t, err, &sv)

	assert.Contains(t, sv.Fields, "transcript: missing")
	assert.Contains(t, sv.Fields, "durationSeconds: must be >= 0")
	assert.Contains(t, sv.Fields, "overallCoherenceScore: 12 outside [0,10]")
	assert.Contains(t, sv.Fields, "suggestions[1]: expected string")
	assert.GreaterOrEqual(t, len(sv.Fields), 4)
}

func TestValidateTimestampedTranscriptRules(t *testing.T) {
	t.Parallel()

	t.Run("optional when absent", func(t *testing.T) {
		t.Parallel()
		doc := validPayload()
		delete(doc, "timestampedTranscript")

		result, err := Validate(marshalPayload(t, doc))
		require.NoError(t, err)
		assert.Empty(t, result.TimestampedTranscript)
	})

	t.Run("start must precede end", func(t *testing.T) {
		t.Parallel()
		doc := validPayload()
		doc["timestampedTranscript"] = []any{
			map[string]any{"startTime": 3.0, "endTime": 3.0, "text": "One sentence."},
		}

		_, err := Validate(marshalPayload(t, doc))
		var sv *SchemaViolationError
		require.ErrorAs(t, err, &sv)
		assert.Contains(t, sv.Fields, "timestampedTranscript[0]: startTime must be < endTime")
	})

	t.Run("one sentence per entry", func(t *testing.T) {
		t.Parallel()
		doc := validPayload()
		doc["timestampedTranscript"] = []any{
			map[string]any{"startTime": 0.0, "endTime": 4.0, "text": "First sentence. Second sentence."},
		}

		_, err := Validate(marshalPayload(t, doc))
		var sv *SchemaViolationError
		require.ErrorAs(t, err, &sv)
		assert.Contains(t, sv.Fields, "timestampedTranscript[0].text: expected exactly one sentence, found 2 terminal marks")
	})

	t.Run("decimal point is not a sentence boundary", func(t *testing.T) {
		t.Parallel()
		doc := validPayload()
		doc["timestampedTranscript"] = []any{
			map[string]any{"startTime": 0.0, "endTime": 4.0, "text": "The budget grew by 3.5 percent this year."},
		}

		result, err := Validate(marshalPayload(t, doc))
		require.NoError(t, err)
		require.Len(t, result.TimestampedTranscript, 1)
	})
}

func TestValidateDerivesReportedCounts(t *testing.T) {
	t.Parallel()

	doc := validPayload()
	// The oracle lies about both derived values.
	doc["totalFillerWords"] = 40.0
	doc["averageGapDuration"] = 99.0

	result, err := Validate(marshalPayload(t, doc))
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalFillerWords)
	assert.InDelta(t, 1.5, result.AverageGapDuration, 1e-9)
}

func TestValidateEmptyGapsYieldZeroAverage(t *testing.T) {
	t.Parallel()

	doc := validPayload()
	doc["gaps"] = []any{}
	doc["averageGapDuration"] = 5.0

	result, err := Validate(marshalPayload(t, doc))
	require.NoError(t, err)
	assert.Zero(t, result.AverageGapDuration)
}

func TestSchemaViolationErrorMessage(t *testing.T) {
	t.Parallel()

	err := &SchemaViolationError{Fields: []string{"a: missing", "b: expected number"}}
	assert.Equal(t, "analysis result failed schema validation: a: missing, b: expected number", err.Error())
	assert.False(t, errors.Is(err, errors.New("other")))
}
