// Package analysis implements the speech analysis pipeline: schema validation
// of oracle output, word/timing normalization, performance scoring, and the
// orchestration of a per-upload analysis request.
package analysis

// GapType classifies a detected pause by duration band.
type GapType string

const (
	GapShort     GapType = "short"
	GapMedium    GapType = "medium"
	GapLong      GapType = "long"
	GapExcessive GapType = "excessive"
)

// SegmentType classifies a speech segment by rhetorical role.
type SegmentType string

const (
	SegmentIntroduction SegmentType = "introduction"
	SegmentBody         SegmentType = "body"
	SegmentConclusion   SegmentType = "conclusion"
	SegmentTransition   SegmentType = "transition"
)

// IssueSeverity grades a coherence issue.
type IssueSeverity string

const (
	SeverityLow    IssueSeverity = "low"
	SeverityMedium IssueSeverity = "medium"
	SeverityHigh   IssueSeverity = "high"
)

// TranscriptEntry is one sentence of the timestamped transcript.
type TranscriptEntry struct {
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
}

// FillerWord records one occurrence of a filler word, not one distinct word.
type FillerWord struct {
	Word      string  `json:"word"`
	Timestamp float64 `json:"timestamp"`
}

// Gap is a detected pause in speech.
type Gap struct {
	Timestamp float64 `json:"timestamp"`
	Duration  float64 `json:"duration"`
	Type      GapType `json:"type"`
}

// SpeechSegment is a contiguous span of the speech with a rhetorical role.
// Segments are ordered and non-overlapping by construction of the oracle;
// overlap is not programmatically enforced.
type SpeechSegment struct {
	Type           SegmentType `json:"type"`
	StartTime      float64     `json:"startTime"`
	EndTime        float64     `json:"endTime"`
	Content        string      `json:"content"`
	CoherenceScore float64     `json:"coherenceScore"`
}

// CoherenceIssue flags a span where the speech loses coherence.
type CoherenceIssue struct {
	StartTime  float64       `json:"startTime"`
	EndTime    float64       `json:"endTime"`
	Issue      string        `json:"issue"`
	Suggestion string        `json:"suggestion"`
	Severity   IssueSeverity `json:"severity"`
}

// FactorScores are the four normalized [0,100] sub-scores feeding the grade.
type FactorScores struct {
	Time      int `json:"time"`
	Coherence int `json:"coherence"`
	Filler    int `json:"filler"`
	Pauses    int `json:"pauses"`
}

// PerformanceDetails is the explanatory breakdown behind the factor scores.
// It is informational only and not used in scoring itself.
type PerformanceDetails struct {
	TimeGoalSeconds    float64 `json:"timeGoalSeconds"`
	TimeDeltaSeconds   float64 `json:"timeDeltaSeconds"`
	FillerPercentage   float64 `json:"fillerPercentage"`
	LongPauseCount     int     `json:"longPauseCount"`
	WordsPerMinute     int     `json:"wordsPerMinute"`
	AverageGapDuration float64 `json:"averageGapDuration"`
}

// PerformanceMetrics is the derived grade for one analysis.
type PerformanceMetrics struct {
	FactorScores FactorScores       `json:"factorScores"`
	OverallGrade int                `json:"overallGrade"`
	Details      PerformanceDetails `json:"details"`
}

// Result is one complete analysis of an upload. WordCount and WPM are always
// recomputed server-side from the transcript text; the oracle's self-reported
// values are never trusted.
type Result struct {
	Transcript            string              `json:"transcript"`
	TimestampedTranscript []TranscriptEntry   `json:"timestampedTranscript,omitempty"`
	DurationSeconds       float64             `json:"durationSeconds"`
	WordCount             int                 `json:"wordCount"`
	WPM                   int                 `json:"wpm"`
	FillerWords           []FillerWord        `json:"fillerWords"`
	TotalFillerWords      int                 `json:"totalFillerWords"`
	Gaps                  []Gap               `json:"gaps"`
	AverageGapDuration    float64             `json:"averageGapDuration"`
	SpeechSegments        []SpeechSegment     `json:"speechSegments"`
	CoherenceIssues       []CoherenceIssue    `json:"coherenceIssues"`
	OverallCoherenceScore float64             `json:"overallCoherenceScore"`
	Suggestions           []string            `json:"suggestions"`
	Performance           *PerformanceMetrics `json:"performance,omitempty"`
}
