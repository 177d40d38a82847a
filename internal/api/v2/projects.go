// projects.go: CRUD handlers for projects
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/speechcoach/speechcoach-go/internal/datastore"
)

// ProjectRequest is the request body for creating or updating a project.
type ProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// TimeframeMs is the target speech duration in milliseconds, 0 for none.
	TimeframeMs int64 `json:"timeframeMs"`
}

// ProjectResponse is the API representation of a project.
type ProjectResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TimeframeMs int64     `json:"timeframeMs"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func projectResponse(p *datastore.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		TimeframeMs: p.Timeframe,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// initProjectRoutes registers the project endpoints
func (c *Controller) initProjectRoutes() {
	c.Group.GET("/projects", c.GetProjects)
	c.Group.POST("/projects", c.CreateProject)
	c.Group.GET("/projects/:projectId", c.GetProject)
	c.Group.PATCH("/projects/:projectId", c.UpdateProject)
	c.Group.DELETE("/projects/:projectId", c.DeleteProject)
}

// projectIDParam parses the :projectId path parameter.
func (c *Controller) projectIDParam(ctx echo.Context) (uint, error) {
	raw := ctx.Param("projectId")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid project ID: "+raw)
	}
	return uint(id), nil
}

// GetProjects returns all projects
func (c *Controller) GetProjects(ctx echo.Context) error {
	projects, err := c.DS.GetAllProjects()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list projects", statusForError(err))
	}

	responses := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		responses = append(responses, projectResponse(&projects[i]))
	}
	return ctx.JSON(http.StatusOK, responses)
}

// GetProject returns a single project by ID
func (c *Controller) GetProject(ctx echo.Context) error {
	id, err := c.projectIDParam(ctx)
	if err != nil {
		return err
	}

	project, err := c.DS.GetProject(id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get project", statusForError(err))
	}
	return ctx.JSON(http.StatusOK, projectResponse(&project))
}

// CreateProject creates a new project
func (c *Controller) CreateProject(ctx echo.Context) error {
	var req ProjectRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.HandleError(ctx, nil, "Project name is required", http.StatusBadRequest)
	}
	if req.TimeframeMs < 0 {
		return c.HandleError(ctx, nil, "Timeframe must not be negative", http.StatusBadRequest)
	}

	project := datastore.Project{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Timeframe:   req.TimeframeMs,
	}
	if err := c.DS.CreateProject(&project); err != nil {
		return c.HandleError(ctx, err, "Failed to create project", statusForError(err))
	}

	c.logAPIRequest(ctx, slog.LevelInfo, "project created", "project_id", project.ID, "name", project.Name)
	return ctx.JSON(http.StatusCreated, projectResponse(&project))
}

// UpdateProject applies a partial update to a project
func (c *Controller) UpdateProject(ctx echo.Context) error {
	id, err := c.projectIDParam(ctx)
	if err != nil {
		return err
	}

	project, err := c.DS.GetProject(id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get project", statusForError(err))
	}

	// Partial update: only fields present in the body are applied.
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		TimeframeMs *int64  `json:"timeframeMs"`
	}
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return c.HandleError(ctx, nil, "Project name must not be empty", http.StatusBadRequest)
		}
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.TimeframeMs != nil {
		if *req.TimeframeMs < 0 {
			return c.HandleError(ctx, nil, "Timeframe must not be negative", http.StatusBadRequest)
		}
		project.Timeframe = *req.TimeframeMs
	}

	if err := c.DS.UpdateProject(&project); err != nil {
		return c.HandleError(ctx, err, "Failed to update project", statusForError(err))
	}

	c.logAPIRequest(ctx, slog.LevelInfo, "project updated", "project_id", project.ID)
	return ctx.JSON(http.StatusOK, projectResponse(&project))
}

// DeleteProject deletes a project, its uploads, and their analyses
func (c *Controller) DeleteProject(ctx echo.Context) error {
	id, err := c.projectIDParam(ctx)
	if err != nil {
		return err
	}

	// Collect upload IDs first so their cached analyses can be dropped.
	uploads, err := c.DS.GetProjectUploads(id, 0, 0)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get project", statusForError(err))
	}

	if err := c.DS.DeleteProject(id); err != nil {
		return c.HandleError(ctx, err, "Failed to delete project", statusForError(err))
	}

	if c.Analysis != nil {
		for i := range uploads {
			c.Analysis.Invalidate(uploads[i].ID)
		}
	}

	c.logAPIRequest(ctx, slog.LevelInfo, "project deleted", "project_id", id, "uploads_removed", len(uploads))
	return ctx.NoContent(http.StatusNoContent)
}
