// analyses.go: handlers for upload analyses
package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// initAnalysisRoutes registers the analysis endpoints
func (c *Controller) initAnalysisRoutes() {
	c.Group.GET("/projects/:projectId/uploads/:uploadId/analysis", c.GetAnalysis)
	c.Group.DELETE("/projects/:projectId/uploads/:uploadId/analysis", c.DeleteAnalysis)
}

// GetAnalysis returns the analysis for an upload, running the pipeline when
// none is stored yet. With ?retry=true the stored analysis is discarded and
// the oracle consulted again.
func (c *Controller) GetAnalysis(ctx echo.Context) error {
	projectID, err := c.projectIDParam(ctx)
	if err != nil {
		return err
	}
	uploadID := ctx.Param("uploadId")

	retry := false
	if raw := ctx.QueryParam("retry"); raw != "" {
		retry, err = strconv.ParseBool(raw)
		if err != nil {
			return c.HandleError(ctx, err, "Invalid retry parameter: "+raw, http.StatusBadRequest)
		}
	}

	result, err := c.Analysis.Get(ctx.Request().Context(), projectID, uploadID, retry)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to analyze upload", statusForError(err))
	}

	c.logAPIRequest(ctx, slog.LevelInfo, "analysis served",
		"project_id", projectID,
		"upload_id", uploadID,
		"retry", retry,
		"grade", result.Performance.OverallGrade)
	return ctx.JSON(http.StatusOK, result)
}

// DeleteAnalysis removes the stored analysis for an upload, keeping the upload
func (c *Controller) DeleteAnalysis(ctx echo.Context) error {
	projectID, err := c.projectIDParam(ctx)
	if err != nil {
		return err
	}
	uploadID := ctx.Param("uploadId")

	if _, err := c.DS.GetProjectUpload(projectID, uploadID); err != nil {
		return c.HandleError(ctx, err, "Failed to get upload", statusForError(err))
	}

	if err := c.DS.DeleteAnalysis(uploadID); err != nil {
		return c.HandleError(ctx, err, "Failed to delete analysis", statusForError(err))
	}
	c.Analysis.Invalidate(uploadID)

	c.logAPIRequest(ctx, slog.LevelInfo, "analysis deleted", "project_id", projectID, "upload_id", uploadID)
	return ctx.NoContent(http.StatusNoContent)
}
