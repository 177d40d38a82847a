package oracle

// analysisPrompt instructs the model to transcribe and analyze a speech
// recording. The field names must match the analysis result schema exactly;
// wordCount, wpm, totalFillerWords and averageGapDuration are recomputed
// server-side but requesting them keeps the model's output self-consistent.
const analysisPrompt = `You are a speech coach analyzing a practice recording of a speech or presentation.

Listen to the attached audio and produce a JSON analysis with these fields:

- transcript: the full verbatim transcript, including filler words.
- timestampedTranscript: the transcript split into sentences, each entry with startTime and endTime in seconds and exactly one sentence of text.
- durationSeconds: total duration of the speech in seconds.
- wordCount: number of words spoken.
- wpm: speaking pace in words per minute.
- fillerWords: every occurrence of a filler word ("um", "uh", "like", "you know", "so", "actually", and similar), each with the word and its timestamp in seconds.
- totalFillerWords: total count of filler word occurrences.
- gaps: every pause in speech, each with timestamp, duration in seconds, and type: "short" (under 1.5s), "medium" (1.5-3s), "long" (3-5s), or "excessive" (over 5s).
- averageGapDuration: mean gap duration in seconds.
- speechSegments: the speech divided into rhetorical segments, each with type ("introduction", "body", "conclusion", or "transition"), startTime, endTime, a one-sentence content summary, and a coherenceScore from 0 to 10.
- coherenceIssues: places where the speech loses coherence (abrupt topic changes, unfinished thoughts, contradictions), each with startTime, endTime, a description of the issue, a concrete suggestion, and severity ("low", "medium", or "high").
- overallCoherenceScore: how well the speech holds together as a whole, from 0 to 10.
- suggestions: three to five concrete, actionable suggestions for improving the delivery.

All timestamps are seconds from the start of the recording. All scores are on a 0-10 scale. Respond with the JSON object only.`

// responseSchema constrains the model's structured output. Enum and range
// constraints mirror the validation applied to the response afterwards.
var responseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"transcript": map[string]any{"type": "string"},
		"timestampedTranscript": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"startTime": map[string]any{"type": "number"},
					"endTime":   map[string]any{"type": "number"},
					"text":      map[string]any{"type": "string"},
				},
				"required": []string{"startTime", "endTime", "text"},
			},
		},
		"durationSeconds": map[string]any{"type": "number", "minimum": 0},
		"wordCount":       map[string]any{"type": "integer", "minimum": 0},
		"wpm":             map[string]any{"type": "integer", "minimum": 0},
		"fillerWords": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"word":      map[string]any{"type": "string"},
					"timestamp": map[string]any{"type": "number"},
				},
				"required": []string{"word", "timestamp"},
			},
		},
		"totalFillerWords": map[string]any{"type": "integer", "minimum": 0},
		"gaps": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"timestamp": map[string]any{"type": "number"},
					"duration":  map[string]any{"type": "number", "minimum": 0},
					"type":      map[string]any{"type": "string", "enum": []string{"short", "medium", "long", "excessive"}},
				},
				"required": []string{"timestamp", "duration", "type"},
			},
		},
		"averageGapDuration": map[string]any{"type": "number", "minimum": 0},
		"speechSegments": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"type":           map[string]any{"type": "string", "enum": []string{"introduction", "body", "conclusion", "transition"}},
					"startTime":      map[string]any{"type": "number"},
					"endTime":        map[string]any{"type": "number"},
					"content":        map[string]any{"type": "string"},
					"coherenceScore": map[string]any{"type": "number", "minimum": 0, "maximum": 10},
				},
				"required": []string{"type", "startTime", "endTime", "content", "coherenceScore"},
			},
		},
		"coherenceIssues": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"startTime":  map[string]any{"type": "number"},
					"endTime":    map[string]any{"type": "number"},
					"issue":      map[string]any{"type": "string"},
					"suggestion": map[string]any{"type": "string"},
					"severity":   map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
				},
				"required": []string{"startTime", "endTime", "issue", "suggestion", "severity"},
			},
		},
		"overallCoherenceScore": map[string]any{"type": "number", "minimum": 0, "maximum": 10},
		"suggestions": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required": []string{
		"transcript", "durationSeconds", "fillerWords", "gaps",
		"speechSegments", "coherenceIssues", "overallCoherenceScore", "suggestions",
	},
}
