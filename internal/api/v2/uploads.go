// uploads.go: handlers for audio uploads scoped to a project
package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/speechcoach/speechcoach-go/internal/datastore"
)

// acceptedAudioTypes lists the MIME types the oracle can transcribe.
var acceptedAudioTypes = map[string]bool{
	"audio/webm":  true,
	"audio/ogg":   true,
	"audio/mpeg":  true,
	"audio/mp3":   true,
	"audio/mp4":   true,
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/flac":  true,
	"audio/aac":   true,
	"video/webm":  true, // browser recorders label audio-only captures as video/webm
}

// UploadResponse is the API representation of an upload's metadata. The audio
// payload itself is never returned.
type UploadResponse struct {
	ID          string    `json:"id"`
	ProjectID   uint      `json:"projectId"`
	FileName    string    `json:"fileName"`
	MimeType    string    `json:"mimeType"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
	HasAnalysis bool      `json:"hasAnalysis"`
}

func (c *Controller) uploadResponse(u *datastore.Upload) UploadResponse {
	resp := UploadResponse{
		ID:        u.ID,
		ProjectID: u.ProjectID,
		FileName:  u.FileName,
		MimeType:  u.MimeType,
		SizeBytes: u.SizeBytes,
		CreatedAt: u.CreatedAt,
	}
	if _, err := c.DS.GetAnalysis(u.ID); err == nil {
		resp.HasAnalysis = true
	}
	return resp
}

// initUploadRoutes registers the upload endpoints
func (c *Controller) initUploadRoutes() {
	c.Group.GET("/projects/:projectId/uploads", c.GetUploads)
	c.Group.POST("/projects/:projectId/uploads", c.CreateUpload)
	c.Group.GET("/projects/:projectId/uploads/:uploadId", c.GetUpload)
	c.Group.DELETE("/projects/:projectId/uploads/:uploadId", c.DeleteUpload)
}

// GetUploads lists the uploads of a project, newest first
func (c *Controller) GetUploads(ctx echo.Context) error {
	projectID, err := c.projectIDParam(ctx)
	if err != nil {
		return err
	}

	if _, err := c.DS.GetProject(projectID); err != nil {
		return c.HandleError(ctx, err, "Failed to get project", statusForError(err))
	}

	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	offset, _ := strconv.Atoi(ctx.QueryParam("offset"))

	uploads, err := c.DS.GetProjectUploads(projectID, limit, offset)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list uploads", statusForError(err))
	}

	responses := make([]UploadResponse, 0, len(uploads))
	for i := range uploads {
		responses = append(responses, c.uploadResponse(&uploads[i]))
	}
	return ctx.JSON(http.StatusOK, responses)
}

// CreateUpload stores a new audio recording from a multipart form
func (c *Controller) CreateUpload(ctx echo.Context) error {
	projectID, err := c.projectIDParam(ctx)
	if err != nil {
		return err
	}

	if _, err := c.DS.GetProject(projectID); err != nil {
		return c.HandleError(ctx, err, "Failed to get project", statusForError(err))
	}

	fileHeader, err := ctx.FormFile("audio")
	if err != nil {
		return c.HandleError(ctx, err, "Missing form field 'audio'", http.StatusBadRequest)
	}

	maxBytes := c.Settings.Analysis.MaxUploadBytes
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		return c.HandleError(ctx, nil, "Audio file exceeds the maximum upload size", http.StatusRequestEntityTooLarge)
	}

	mimeType := strings.ToLower(fileHeader.Header.Get("Content-Type"))
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if !acceptedAudioTypes[mimeType] {
		return c.HandleError(ctx, nil, "Unsupported audio type: "+mimeType, http.StatusBadRequest)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read uploaded file", http.StatusBadRequest)
	}
	defer func() {
		_ = file.Close()
	}()

	// Size is re-enforced during the read; the multipart header is advisory.
	var audio []byte
	if maxBytes > 0 {
		audio, err = io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err == nil && int64(len(audio)) > maxBytes {
			return c.HandleError(ctx, nil, "Audio file exceeds the maximum upload size", http.StatusRequestEntityTooLarge)
		}
	} else {
		audio, err = io.ReadAll(file)
	}
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read uploaded file", http.StatusBadRequest)
	}
	if len(audio) == 0 {
		return c.HandleError(ctx, nil, "Uploaded audio file is empty", http.StatusBadRequest)
	}

	upload := datastore.Upload{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		FileName:  fileHeader.Filename,
		MimeType:  mimeType,
		SizeBytes: int64(len(audio)),
		Audio:     audio,
	}
	if err := c.DS.CreateUpload(&upload); err != nil {
		return c.HandleError(ctx, err, "Failed to store upload", statusForError(err))
	}

	c.logAPIRequest(ctx, slog.LevelInfo, "upload created",
		"project_id", projectID,
		"upload_id", upload.ID,
		"file_name", upload.FileName,
		"size_bytes", upload.SizeBytes)
	return ctx.JSON(http.StatusCreated, c.uploadResponse(&upload))
}

// GetUpload returns the metadata of a single upload
func (c *Controller) GetUpload(ctx echo.Context) error {
	projectID, err := c.projectIDParam(ctx)
	if err != nil {
		return err
	}

	upload, err := c.DS.GetProjectUpload(projectID, ctx.Param("uploadId"))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get upload", statusForError(err))
	}
	return ctx.JSON(http.StatusOK, c.uploadResponse(&upload))
}

// DeleteUpload removes an upload and its analysis
func (c *Controller) DeleteUpload(ctx echo.Context) error {
	projectID, err := c.projectIDParam(ctx)
	if err != nil {
		return err
	}
	uploadID := ctx.Param("uploadId")

	if _, err := c.DS.GetProjectUpload(projectID, uploadID); err != nil {
		return c.HandleError(ctx, err, "Failed to get upload", statusForError(err))
	}

	if err := c.DS.DeleteUpload(uploadID); err != nil {
		return c.HandleError(ctx, err, "Failed to delete upload", statusForError(err))
	}
	if c.Analysis != nil {
		c.Analysis.Invalidate(uploadID)
	}

	c.logAPIRequest(ctx, slog.LevelInfo, "upload deleted", "project_id", projectID, "upload_id", uploadID)
	return ctx.NoContent(http.StatusNoContent)
}
