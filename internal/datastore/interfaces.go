// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"log"
	"os"
	"time"

	"github.com/speechcoach/speechcoach-go/internal/conf"
	"github.com/speechcoach/speechcoach-go/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Interface abstracts the underlying database implementation and defines the interface for database operations.
type Interface interface {
	Open() error
	Close() error

	// projects
	CreateProject(project *Project) error
	GetProject(id uint) (Project, error)
	GetAllProjects() ([]Project, error)
	UpdateProject(project *Project) error
	DeleteProject(id uint) error

	// uploads
	CreateUpload(upload *Upload) error
	GetUpload(id string) (Upload, error)
	GetProjectUpload(projectID uint, id string) (Upload, error)
	GetProjectUploads(projectID uint, limit, offset int) ([]Upload, error)
	DeleteUpload(id string) error

	// analyses
	GetAnalysis(uploadID string) (Analysis, error)
	SaveAnalysis(analysis *Analysis) error
	DeleteAnalysis(uploadID string) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// CreateProject stores a new project.
func (ds *DataStore) CreateProject(project *Project) error {
	if err := ds.DB.Create(project).Error; err != nil {
		return errors.Newf("creating project: %w", err).
			Category(errors.CategoryDatabase).
			Component("datastore").
			Build()
	}
	return nil
}

// GetProject retrieves a project by its ID.
func (ds *DataStore) GetProject(id uint) (Project, error) {
	var project Project
	if err := ds.DB.First(&project, id).Error; err != nil {
		return Project{}, projectError(err, id)
	}
	return project, nil
}

// GetAllProjects retrieves all projects, newest first.
func (ds *DataStore) GetAllProjects() ([]Project, error) {
	var projects []Project
	if err := ds.DB.Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, errors.Newf("listing projects: %w", err).
			Category(errors.CategoryDatabase).
			Component("datastore").
			Build()
	}
	return projects, nil
}

// UpdateProject persists changes to an existing project.
func (ds *DataStore) UpdateProject(project *Project) error {
	result := ds.DB.Model(&Project{}).Where("id = ?", project.ID).
		Updates(map[string]any{
			"name":        project.Name,
			"description": project.Description,
			"timeframe":   project.Timeframe,
		})
	if result.Error != nil {
		return errors.Newf("updating project %d: %w", project.ID, result.Error).
			Category(errors.CategoryDatabase).
			Component("datastore").
			Build()
	}
	if result.RowsAffected == 0 {
		return projectError(gorm.ErrRecordNotFound, project.ID)
	}
	return nil
}

// DeleteProject removes a project and cascades to its uploads and their analyses.
func (ds *DataStore) DeleteProject(id uint) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var uploadIDs []string
		if err := tx.Model(&Upload{}).Where("project_id = ?", id).Pluck("id", &uploadIDs).Error; err != nil {
			return errors.Newf("listing uploads for project %d: %w", id, err).
				Category(errors.CategoryDatabase).
				Component("datastore").
				Build()
		}
		if len(uploadIDs) > 0 {
			if err := tx.Where("upload_id IN ?", uploadIDs).Delete(&Analysis{}).Error; err != nil {
				return errors.Newf("deleting analyses for project %d: %w", id, err).
					Category(errors.CategoryDatabase).
					Component("datastore").
					Build()
			}
			if err := tx.Where("project_id = ?", id).Delete(&Upload{}).Error; err != nil {
				return errors.Newf("deleting uploads for project %d: %w", id, err).
					Category(errors.CategoryDatabase).
					Component("datastore").
					Build()
			}
		}
		result := tx.Delete(&Project{}, id)
		if result.Error != nil {
			return errors.Newf("deleting project %d: %w", id, result.Error).
				Category(errors.CategoryDatabase).
				Component("datastore").
				Build()
		}
		if result.RowsAffected == 0 {
			return projectError(gorm.ErrRecordNotFound, id)
		}
		return nil
	})
}

// CreateUpload stores a new upload with its audio bytes.
func (ds *DataStore) CreateUpload(upload *Upload) error {
	if err := ds.DB.Create(upload).Error; err != nil {
		return errors.Newf("creating upload: %w", err).
			Category(errors.CategoryDatabase).
			Component("datastore").
			Context("upload_id", upload.ID).
			Build()
	}
	return nil
}

// GetUpload retrieves an upload by its ID.
func (ds *DataStore) GetUpload(id string) (Upload, error) {
	var upload Upload
	if err := ds.DB.First(&upload, "id = ?", id).Error; err != nil {
		return Upload{}, uploadError(err, id)
	}
	return upload, nil
}

// GetProjectUpload retrieves an upload scoped to a project; an upload that
// exists under a different project reports as not found.
func (ds *DataStore) GetProjectUpload(projectID uint, id string) (Upload, error) {
	var upload Upload
	if err := ds.DB.First(&upload, "id = ? AND project_id = ?", id, projectID).Error; err != nil {
		return Upload{}, uploadError(err, id)
	}
	return upload, nil
}

// GetProjectUploads lists uploads for a project, newest first, without audio
// payloads. A limit of 0 or less returns all uploads.
func (ds *DataStore) GetProjectUploads(projectID uint, limit, offset int) ([]Upload, error) {
	query := ds.DB.Select("id", "project_id", "file_name", "mime_type", "size_bytes", "created_at").
		Where("project_id = ?", projectID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var uploads []Upload
	err := query.Find(&uploads).Error
	if err != nil {
		return nil, errors.Newf("listing uploads for project %d: %w", projectID, err).
			Category(errors.CategoryDatabase).
			Component("datastore").
			Build()
	}
	return uploads, nil
}

// DeleteUpload removes an upload and its analysis in a single transaction.
func (ds *DataStore) DeleteUpload(id string) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("upload_id = ?", id).Delete(&Analysis{}).Error; err != nil {
			return errors.Newf("deleting analysis for upload %s: %w", id, err).
				Category(errors.CategoryDatabase).
				Component("datastore").
				Build()
		}
		result := tx.Delete(&Upload{}, "id = ?", id)
		if result.Error != nil {
			return errors.Newf("deleting upload %s: %w", id, result.Error).
				Category(errors.CategoryDatabase).
				Component("datastore").
				Build()
		}
		if result.RowsAffected == 0 {
			return uploadError(gorm.ErrRecordNotFound, id)
		}
		return nil
	})
}

// GetAnalysis retrieves the analysis for an upload. Absence is reported with a
// not-found category so callers can distinguish "never analyzed" from failures.
func (ds *DataStore) GetAnalysis(uploadID string) (Analysis, error) {
	var analysis Analysis
	if err := ds.DB.First(&analysis, "upload_id = ?", uploadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Analysis{}, errors.Newf("no analysis for upload %s", uploadID).
				Category(errors.CategoryNotFound).
				Component("datastore").
				Context("upload_id", uploadID).
				Build()
		}
		return Analysis{}, errors.Newf("getting analysis for upload %s: %w", uploadID, err).
			Category(errors.CategoryDatabase).
			Component("datastore").
			Build()
	}
	return analysis, nil
}

// SaveAnalysis upserts the analysis for an upload. Writes are full replacements,
// never partial merges; last write wins on concurrent retries.
func (ds *DataStore) SaveAnalysis(analysis *Analysis) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var existing Analysis
		err := tx.First(&existing, "upload_id = ?", analysis.UploadID).Error
		switch {
		case err == nil:
			analysis.ID = existing.ID
			analysis.CreatedAt = existing.CreatedAt
			if err := tx.Save(analysis).Error; err != nil {
				return errors.Newf("replacing analysis for upload %s: %w", analysis.UploadID, err).
					Category(errors.CategoryDatabase).
					Component("datastore").
					Build()
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(analysis).Error; err != nil {
				return errors.Newf("creating analysis for upload %s: %w", analysis.UploadID, err).
					Category(errors.CategoryDatabase).
					Component("datastore").
					Build()
			}
		default:
			return errors.Newf("looking up analysis for upload %s: %w", analysis.UploadID, err).
				Category(errors.CategoryDatabase).
				Component("datastore").
				Build()
		}
		return nil
	})
}

// DeleteAnalysis removes the analysis for an upload if one exists.
func (ds *DataStore) DeleteAnalysis(uploadID string) error {
	if err := ds.DB.Where("upload_id = ?", uploadID).Delete(&Analysis{}).Error; err != nil {
		return errors.Newf("deleting analysis for upload %s: %w", uploadID, err).
			Category(errors.CategoryDatabase).
			Component("datastore").
			Build()
	}
	return nil
}

// projectError maps a gorm error for a project lookup to an enhanced error.
func projectError(err error, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Newf("project %d not found", id).
			Category(errors.CategoryNotFound).
			Component("datastore").
			Context("project_id", id).
			Build()
	}
	return errors.Newf("getting project %d: %w", id, err).
		Category(errors.CategoryDatabase).
		Component("datastore").
		Build()
}

// uploadError maps a gorm error for an upload lookup to an enhanced error.
func uploadError(err error, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Newf("upload %s not found", id).
			Category(errors.CategoryNotFound).
			Component("datastore").
			Context("upload_id", id).
			Build()
	}
	return errors.Newf("getting upload %s: %w", id, err).
		Category(errors.CategoryDatabase).
		Component("datastore").
		Build()
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Project{}, &Upload{}, &Analysis{}); err != nil {
		return errors.Newf("failed to auto-migrate %s database: %w", dbType, err).
			Category(errors.CategoryDatabase).
			Component("datastore").
			Build()
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}

	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)
}
