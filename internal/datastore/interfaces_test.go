package datastore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/speechcoach/speechcoach-go/internal/errors"
)

// setupTestStore creates a DataStore backed by an in-memory SQLite database.
func setupTestStore(t *testing.T) *DataStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "Failed to open in-memory database")

	require.NoError(t, db.AutoMigrate(&Project{}, &Upload{}, &Analysis{}))

	return &DataStore{DB: db}
}

func createTestUpload(t *testing.T, ds *DataStore) (Project, Upload) {
	t.Helper()

	project := Project{Name: "Keynote rehearsal", Timeframe: 60000}
	require.NoError(t, ds.CreateProject(&project))

	upload := Upload{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		FileName:  "take1.wav",
		MimeType:  "audio/wav",
		SizeBytes: 4,
		Audio:     []byte{0x52, 0x49, 0x46, 0x46},
	}
	require.NoError(t, ds.CreateUpload(&upload))

	return project, upload
}

func TestProjectCRUD(t *testing.T) {
	ds := setupTestStore(t)

	project := Project{Name: "Demo day pitch", Description: "3 minute pitch", Timeframe: 180000}
	require.NoError(t, ds.CreateProject(&project))
	require.NotZero(t, project.ID)

	fetched, err := ds.GetProject(project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Demo day pitch", fetched.Name)
	assert.Equal(t, int64(180000), fetched.Timeframe)

	fetched.Timeframe = 120000
	require.NoError(t, ds.UpdateProject(&fetched))
	updated, err := ds.GetProject(project.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(120000), updated.Timeframe)

	projects, err := ds.GetAllProjects()
	require.NoError(t, err)
	assert.Len(t, projects, 1)

	require.NoError(t, ds.DeleteProject(project.ID))
	_, err = ds.GetProject(project.ID)
	assert.True(t, errors.IsNotFound(err), "deleted project should report not found")
}

func TestGetProjectNotFound(t *testing.T) {
	ds := setupTestStore(t)

	_, err := ds.GetProject(42)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestUploadScopedLookup(t *testing.T) {
	ds := setupTestStore(t)
	project, upload := createTestUpload(t, ds)

	got, err := ds.GetProjectUpload(project.ID, upload.ID)
	require.NoError(t, err)
	assert.Equal(t, upload.FileName, got.FileName)

	// Same upload under the wrong project reports not found
	_, err = ds.GetProjectUpload(project.ID+1, upload.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestUploadListingOmitsAudio(t *testing.T) {
	ds := setupTestStore(t)
	project, _ := createTestUpload(t, ds)

	uploads, err := ds.GetProjectUploads(project.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Empty(t, uploads[0].Audio, "listing should not carry audio payloads")
	assert.Equal(t, int64(4), uploads[0].SizeBytes)
}

func TestSaveAnalysisUpsertReplaces(t *testing.T) {
	ds := setupTestStore(t)
	_, upload := createTestUpload(t, ds)

	first := Analysis{
		UploadID:        upload.ID,
		DurationSeconds: 30,
		WordCount:       50,
		WPM:             100,
		Payload:         []byte(`{"transcript":"first"}`),
	}
	require.NoError(t, ds.SaveAnalysis(&first))

	grade := 67
	second := Analysis{
		UploadID:        upload.ID,
		DurationSeconds: 65,
		WordCount:       130,
		WPM:             120,
		OverallGrade:    &grade,
		Payload:         []byte(`{"transcript":"second"}`),
	}
	require.NoError(t, ds.SaveAnalysis(&second))

	stored, err := ds.GetAnalysis(upload.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID, "replacement should reuse the existing row")
	assert.Equal(t, 130, stored.WordCount)
	assert.JSONEq(t, `{"transcript":"second"}`, string(stored.Payload))

	var count int64
	require.NoError(t, ds.DB.Model(&Analysis{}).Where("upload_id = ?", upload.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count, "at most one analysis per upload")
}

func TestGetAnalysisAbsent(t *testing.T) {
	ds := setupTestStore(t)
	_, upload := createTestUpload(t, ds)

	_, err := ds.GetAnalysis(upload.ID)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "never-analyzed upload reports not found")
}

func TestDeleteUploadCascadesAnalysis(t *testing.T) {
	ds := setupTestStore(t)
	_, upload := createTestUpload(t, ds)

	analysis := Analysis{UploadID: upload.ID, Payload: []byte(`{}`)}
	require.NoError(t, ds.SaveAnalysis(&analysis))

	require.NoError(t, ds.DeleteUpload(upload.ID))

	_, err := ds.GetUpload(upload.ID)
	assert.True(t, errors.IsNotFound(err))

	_, err = ds.GetAnalysis(upload.ID)
	assert.True(t, errors.IsNotFound(err), "analysis should be deleted with its upload")
}

func TestDeleteProjectCascades(t *testing.T) {
	ds := setupTestStore(t)
	project, upload := createTestUpload(t, ds)

	analysis := Analysis{UploadID: upload.ID, Payload: []byte(`{}`)}
	require.NoError(t, ds.SaveAnalysis(&analysis))

	require.NoError(t, ds.DeleteProject(project.ID))

	_, err := ds.GetUpload(upload.ID)
	assert.True(t, errors.IsNotFound(err))
	_, err = ds.GetAnalysis(upload.ID)
	assert.True(t, errors.IsNotFound(err))
}
