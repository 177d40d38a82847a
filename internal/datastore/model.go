// model.go this code defines the data model for the application
package datastore

import "time"

// Project groups a user's uploads under one speaking goal.
type Project struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"index:idx_projects_name"`
	Description string `gorm:"type:text"`
	// Timeframe is the target speech duration in milliseconds, 0 means no target.
	Timeframe int64
	CreatedAt time.Time
	UpdatedAt time.Time
	Uploads   []Upload `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// Upload represents one user-submitted audio recording scoped to a project.
type Upload struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"` // UUID
	ProjectID uint   `gorm:"index;not null;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;foreignKey:ProjectID;references:ID"`
	FileName  string
	MimeType  string `gorm:"type:varchar(64)"`
	SizeBytes int64
	Audio     []byte `gorm:"type:blob"` // raw audio bytes fed to the oracle
	CreatedAt time.Time
	Analysis  *Analysis `gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE"` // at most one analysis per upload
}

// Analysis holds the one validated, normalized, scored analysis of an upload.
// Payload is the full AnalysisResult document as JSON; the scalar columns are
// denormalized for listing queries and are always derived from the payload.
type Analysis struct {
	ID              uint   `gorm:"primaryKey"`
	UploadID        string `gorm:"uniqueIndex;not null;type:varchar(36);constraint:OnDelete:CASCADE,OnUpdate:CASCADE;foreignKey:UploadID;references:ID"`
	DurationSeconds float64
	WordCount       int
	WPM             int
	OverallGrade    *int   // nil when the record predates scoring, backfilled on read
	Payload         []byte `gorm:"type:blob;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
