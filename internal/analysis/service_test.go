package analysis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speechcoach/speechcoach-go/internal/conf"
	"github.com/speechcoach/speechcoach-go/internal/datastore"
	"github.com/speechcoach/speechcoach-go/internal/errors"
)

// fakeOracle returns a canned payload and counts invocations.
type fakeOracle struct {
	calls   int
	payload []byte
	err     error
}

func (f *fakeOracle) Analyze(_ context.Context, _ []byte, _ string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func testSettings() *conf.Settings {
	return &conf.Settings{
		Output: conf.OutputSettings{
			SQLite: conf.SQLiteSettings{Enabled: true, Path: ":memory:"},
		},
		Analysis: conf.AnalysisSettings{HotCacheTTLSeconds: 300},
	}
}

func setupService(t *testing.T, oracle Oracle) (*Service, datastore.Interface) {
	t.Helper()
	settings := testSettings()
	ds := datastore.New(settings)
	require.NotNil(t, ds)
	require.NoError(t, ds.Open())
	t.Cleanup(func() { _ = ds.Close() })
	return NewService(settings, ds, oracle, nil), ds
}

func seedUpload(t *testing.T, ds datastore.Interface, timeframeMs int64) (uint, string) {
	t.Helper()
	project := &datastore.Project{Name: "practice talk", Timeframe: timeframeMs}
	require.NoError(t, ds.CreateProject(project))

	upload := &datastore.Upload{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		FileName:  "take1.webm",
		MimeType:  "audio/webm",
		SizeBytes: 4,
		Audio:     []byte{0x1a, 0x45, 0xdf, 0xa3},
	}
	require.NoError(t, ds.CreateUpload(upload))
	return project.ID, upload.ID
}

func oraclePayload(t *testing.T, mutate func(doc map[string]any)) []byte {
	t.Helper()
	doc := validPayload()
	if mutate != nil {
		mutate(doc)
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func TestServiceRunsPipelineOnce(t *testing.T) {
	oracle := &fakeOracle{payload: oraclePayload(t, nil)}
	svc, ds := setupService(t, oracle)
	projectID, uploadID := seedUpload(t, ds, 0)

	first, err := svc.Get(context.Background(), projectID, uploadID, false)
	require.NoError(t, err)
	require.NotNil(t, first.Performance)
	assert.Equal(t, 1, oracle.calls)

	// Second request is served from cache without another oracle call.
	second, err := svc.Get(context.Background(), projectID, uploadID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, oracle.calls)
	assert.Equal(t, first.Performance.OverallGrade, second.Performance.OverallGrade)

	stored, err := ds.GetAnalysis(uploadID)
	require.NoError(t, err)
	require.NotNil(t, stored.OverallGrade)
	assert.Equal(t, first.Performance.OverallGrade, *stored.OverallGrade)
	assert.Equal(t, first.WordCount, stored.WordCount)
}

func TestServiceServesStoredAnalysisAcrossInstances(t *testing.T) {
	oracle := &fakeOracle{payload: oraclePayload(t, nil)}
	svc, ds := setupService(t, oracle)
	projectID, uploadID := seedUpload(t, ds, 0)

	_, err := svc.Get(context.Background(), projectID, uploadID, false)
	require.NoError(t, err)
	require.Equal(t, 1, oracle.calls)

	// A fresh service with a cold cache finds the persisted analysis.
	fresh := NewService(testSettings(), ds, oracle, nil)
	result, err := fresh.Get(context.Background(), projectID, uploadID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, oracle.calls)
	assert.NotNil(t, result.Performance)
}

func TestServiceForceRetryReplacesAnalysis(t *testing.T) {
	oracle := &fakeOracle{payload: oraclePayload(t, nil)}
	svc, ds := setupService(t, oracle)
	projectID, uploadID := seedUpload(t, ds, 0)

	first, err := svc.Get(context.Background(), projectID, uploadID, false)
	require.NoError(t, err)

	oracle.payload = oraclePayload(t, func(doc map[string]any) {
		doc["transcript"] = "A completely different take with many more words in it."
		delete(doc, "timestampedTranscript")
		doc["overallCoherenceScore"] = 3.0
	})

	second, err := svc.Get(context.Background(), projectID, uploadID, true)
	require.NoError(t, err)
	assert.Equal(t, 2, oracle.calls)
	assert.NotEqual(t, first.Transcript, second.Transcript)

	stored, err := ds.GetAnalysis(uploadID)
	require.NoError(t, err)
	var persisted Result
	require.NoError(t, json.Unmarshal(stored.Payload, &persisted))
	assert.Equal(t, second.Transcript, persisted.Transcript)
}

func TestServiceFailedRetryKeepsPreviousAnalysis(t *testing.T) {
	oracle := &fakeOracle{payload: oraclePayload(t, nil)}
	svc, ds := setupService(t, oracle)
	projectID, uploadID := seedUpload(t, ds, 0)

	first, err := svc.Get(context.Background(), projectID, uploadID, false)
	require.NoError(t, err)

	oracle.err = errors.Newf("oracle unreachable").
		Category(errors.CategoryOracle).
		Component("oracle").
		Build()

	_, err = svc.Get(context.Background(), projectID, uploadID, true)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryOracle))

	// The stored analysis is untouched and still served.
	oracle.err = nil
	result, err := svc.Get(context.Background(), projectID, uploadID, false)
	require.NoError(t, err)
	assert.Equal(t, first.Transcript, result.Transcript)
	assert.Equal(t, 2, oracle.calls)
}

func TestServiceRejectsInvalidOracleResponse(t *testing.T) {
	oracle := &fakeOracle{payload: oraclePayload(t, func(doc map[string]any) {
		doc["overallCoherenceScore"] = 42.0
	})}
	svc, ds := setupService(t, oracle)
	projectID, uploadID := seedUpload(t, ds, 0)

	_, err := svc.Get(context.Background(), projectID, uploadID, false)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	// Nothing was persisted.
	_, err = ds.GetAnalysis(uploadID)
	assert.True(t, errors.IsNotFound(err))
}

func TestServiceNotFoundPaths(t *testing.T) {
	oracle := &fakeOracle{payload: oraclePayload(t, nil)}
	svc, ds := setupService(t, oracle)
	projectID, uploadID := seedUpload(t, ds, 0)

	t.Run("unknown project", func(t *testing.T) {
		_, err := svc.Get(context.Background(), projectID+999, uploadID, false)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("unknown upload", func(t *testing.T) {
		_, err := svc.Get(context.Background(), projectID, uuid.New().String(), false)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("upload scoped to other project", func(t *testing.T) {
		other := &datastore.Project{Name: "other"}
		require.NoError(t, ds.CreateProject(other))
		_, err := svc.Get(context.Background(), other.ID, uploadID, false)
		assert.True(t, errors.IsNotFound(err))
	})

	assert.Zero(t, oracle.calls)
}

func TestServiceBackfillsMissingPerformance(t *testing.T) {
	oracle := &fakeOracle{payload: oraclePayload(t, nil)}
	svc, ds := setupService(t, oracle)
	projectID, uploadID := seedUpload(t, ds, 60_000)

	// Simulate a record written before scoring existed: valid payload, no
	// performance block, no stored grade.
	legacy, err := Validate(oraclePayload(t, nil))
	require.NoError(t, err)
	Normalize(legacy)
	payload, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, ds.SaveAnalysis(&datastore.Analysis{
		UploadID:        uploadID,
		DurationSeconds: legacy.DurationSeconds,
		WordCount:       legacy.WordCount,
		WPM:             legacy.WPM,
		Payload:         payload,
	}))

	result, err := svc.Get(context.Background(), projectID, uploadID, false)
	require.NoError(t, err)
	require.NotNil(t, result.Performance)
	assert.Zero(t, oracle.calls)

	// The backfilled grade was persisted.
	stored, err := ds.GetAnalysis(uploadID)
	require.NoError(t, err)
	require.NotNil(t, stored.OverallGrade)
	assert.Equal(t, result.Performance.OverallGrade, *stored.OverallGrade)
}

func TestServiceInvalidateDropsCacheEntry(t *testing.T) {
	oracle := &fakeOracle{payload: oraclePayload(t, nil)}
	svc, ds := setupService(t, oracle)
	projectID, uploadID := seedUpload(t, ds, 0)

	_, err := svc.Get(context.Background(), projectID, uploadID, false)
	require.NoError(t, err)

	svc.Invalidate(uploadID)
	require.NoError(t, ds.DeleteAnalysis(uploadID))

	// With cache and database both cleared the oracle runs again.
	_, err = svc.Get(context.Background(), projectID, uploadID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, oracle.calls)
}
