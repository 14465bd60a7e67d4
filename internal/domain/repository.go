package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// Submission operations
	SaveSubmission(ctx context.Context, sub *Submission) error
	GetSubmission(ctx context.Context, id string) (*Submission, error)
	UpdateSubmissionStatus(ctx context.Context, id string, status string) error

	// Author history reads used by the engine. RecentByAuthor returns the
	// most recent submissions since the given time, newest first, capped
	// at limit. StatusesByAuthor returns the status of every submission
	// the author has ever made.
	RecentByAuthor(ctx context.Context, authorID string, since time.Time, limit int) ([]*HistoryRecord, error)
	StatusesByAuthor(ctx context.Context, authorID string) ([]string, error)

	// Assessment results
	SaveAssessment(ctx context.Context, result *AssessmentResult) error
	GetAssessment(ctx context.Context, id string) (*AssessmentResult, error)
	GetAssessmentBySubmission(ctx context.Context, submissionID string) (*AssessmentResult, error)

	// Custom check configuration
	SaveCheckConfig(ctx context.Context, check *CheckConfig) error
	GetCheckConfig(ctx context.Context, checkID string) (*CheckConfig, error)
	ListCheckConfigs(ctx context.Context) ([]*CheckConfig, error)
	DeleteCheckConfig(ctx context.Context, checkID string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
