package models

// ImportRun records the outcome of one CSV import.
// It corresponds to the 'import_runs' table.
type ImportRun struct {
	ID            uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID         string   `gorm:"not null;uniqueIndex" json:"run_id"`
	Source        string   `gorm:"not null" json:"source"`
	Status        string   `gorm:"not null" json:"status"`
	ImportedCount int      `gorm:"not null;default:0" json:"imported_count"`
	SkippedCount  int      `gorm:"not null;default:0" json:"skipped_count"`
	Errors        []string `gorm:"serializer:json" json:"errors"`
	FailureReason *string  `gorm:"" json:"failure_reason,omitempty"` // Nullable, set for fatal runs
	ArchivePath   *string  `gorm:"" json:"archive_path,omitempty"`   // Nullable, relative to the upload store
	StartedAt     int64    `gorm:"not null" json:"started_at"`
	FinishedAt    int64    `gorm:"not null" json:"finished_at"`
}

const (
	ImportStatusCompleted           = "completed"
	ImportStatusCompletedWithErrors = "completed_with_errors"
	ImportStatusFailed              = "failed"
)

// TableName explicitly sets the table name for GORM.
func (ImportRun) TableName() string {
	return "import_runs"
}
