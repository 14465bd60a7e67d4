// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bookofrecords/sentinel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveSubmission stores a submission.
func (r *SQLRepository) SaveSubmission(ctx context.Context, sub *domain.Submission) error {
	if sub.ID == "" || sub.AuthorID == "" {
		return fmt.Errorf("%w: id and authorId are required", ErrInvalidInput)
	}

	status := sub.Status
	if status == "" {
		status = domain.StatusPending
	}

	query := `
		INSERT INTO submissions (
			id, author_id, title, description, evidence_url,
			status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		sub.ID, sub.AuthorID, sub.Title, sub.Description, sub.EvidenceURL,
		status, sub.CreatedAt, sub.UpdatedAt,
	)
	return err
}

// GetSubmission retrieves a submission by ID.
func (r *SQLRepository) GetSubmission(ctx context.Context, id string) (*domain.Submission, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, author_id, title, description, evidence_url,
		       status, created_at, updated_at
		FROM submissions
		WHERE id = ?
	`

	var sub domain.Submission
	var evidenceURL sql.NullString

	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(
		&sub.ID, &sub.AuthorID, &sub.Title, &sub.Description, &evidenceURL,
		&sub.Status, &sub.CreatedAt, &sub.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	sub.EvidenceURL = evidenceURL.String
	return &sub, nil
}

// UpdateSubmissionStatus transitions a submission to a new status.
func (r *SQLRepository) UpdateSubmissionStatus(ctx context.Context, id string, status string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	if !domain.ValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	query := `
		UPDATE submissions
		SET status = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), status, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// RecentByAuthor retrieves the author's most recent submissions since the
// given time, newest first, capped at limit.
func (r *SQLRepository) RecentByAuthor(ctx context.Context, authorID string, since time.Time, limit int) ([]*domain.HistoryRecord, error) {
	if authorID == "" {
		return nil, fmt.Errorf("%w: authorID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, title, created_at
		FROM submissions
		WHERE author_id = ? AND created_at >= ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), authorID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.HistoryRecord
	for rows.Next() {
		var rec domain.HistoryRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// StatusesByAuthor retrieves the status of every submission by the author.
func (r *SQLRepository) StatusesByAuthor(ctx context.Context, authorID string) ([]string, error) {
	if authorID == "" {
		return nil, fmt.Errorf("%w: authorID is required", ErrInvalidInput)
	}

	query := `
		SELECT status
		FROM submissions
		WHERE author_id = ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []string
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}

	return statuses, rows.Err()
}

// SaveAssessment stores an assessment result.
func (r *SQLRepository) SaveAssessment(ctx context.Context, result *domain.AssessmentResult) error {
	if result.ID == "" || result.AuthorID == "" {
		return fmt.Errorf("%w: id and authorId are required", ErrInvalidInput)
	}

	flags, _ := json.Marshal(result.Flags)
	suggestions, _ := json.Marshal(result.Suggestions)
	details, _ := json.Marshal(result.Details)

	query := `
		INSERT INTO assessments (
			id, submission_id, author_id, fraud_score, content_quality_score,
			flags, recommended_action, suggestions, details, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		result.ID, result.SubmissionID, result.AuthorID,
		result.FraudScore, result.ContentQualityScore,
		string(flags), result.RecommendedAction, string(suggestions), string(details),
		time.Now().UTC(),
	)
	return err
}

// GetAssessment retrieves an assessment by ID.
func (r *SQLRepository) GetAssessment(ctx context.Context, id string) (*domain.AssessmentResult, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, submission_id, author_id, fraud_score, content_quality_score,
		       flags, recommended_action, suggestions, details
		FROM assessments
		WHERE id = ?
	`

	return r.scanAssessment(r.db.QueryRowContext(ctx, r.rebind(query), id))
}

// GetAssessmentBySubmission retrieves the latest assessment for a submission.
func (r *SQLRepository) GetAssessmentBySubmission(ctx context.Context, submissionID string) (*domain.AssessmentResult, error) {
	if submissionID == "" {
		return nil, fmt.Errorf("%w: submissionID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, submission_id, author_id, fraud_score, content_quality_score,
		       flags, recommended_action, suggestions, details
		FROM assessments
		WHERE submission_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.scanAssessment(r.db.QueryRowContext(ctx, r.rebind(query), submissionID))
}

func (r *SQLRepository) scanAssessment(row *sql.Row) (*domain.AssessmentResult, error) {
	var result domain.AssessmentResult
	var submissionID sql.NullString
	var flags, suggestions, details string

	err := row.Scan(
		&result.ID, &submissionID, &result.AuthorID,
		&result.FraudScore, &result.ContentQualityScore,
		&flags, &result.RecommendedAction, &suggestions, &details,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	result.SubmissionID = submissionID.String
	json.Unmarshal([]byte(flags), &result.Flags)
	json.Unmarshal([]byte(suggestions), &result.Suggestions)
	json.Unmarshal([]byte(details), &result.Details)

	return &result, nil
}

// SaveCheckConfig stores a custom check configuration.
func (r *SQLRepository) SaveCheckConfig(ctx context.Context, check *domain.CheckConfig) error {
	if check.ID == "" {
		return fmt.Errorf("%w: check id is required", ErrInvalidInput)
	}

	enabled := 0
	if check.Enabled {
		enabled = 1
	}

	version := check.Version
	if version == "" {
		version = "1.0.0"
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO check_configs (
			id, name, description, version, expression, flag,
			fraud_delta, quality_delta, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			flag = excluded.flag,
			fraud_delta = excluded.fraud_delta,
			quality_delta = excluded.quality_delta,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		check.ID, check.Name, check.Description, version,
		check.Expression, string(check.Flag),
		check.FraudDelta, check.QualityDelta, enabled,
		now, now,
	)
	return err
}

// GetCheckConfig retrieves an enabled check configuration by ID.
func (r *SQLRepository) GetCheckConfig(ctx context.Context, checkID string) (*domain.CheckConfig, error) {
	if checkID == "" {
		return nil, fmt.Errorf("%w: checkID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, name, description, version, expression, flag,
		       fraud_delta, quality_delta, enabled
		FROM check_configs
		WHERE id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	var check domain.CheckConfig
	var flag string
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), checkID).Scan(
		&check.ID, &check.Name, &check.Description, &check.Version,
		&check.Expression, &flag,
		&check.FraudDelta, &check.QualityDelta, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	check.Flag = domain.Flag(flag)
	check.Enabled = enabled == 1

	return &check, nil
}

// ListCheckConfigs retrieves all enabled check configurations.
func (r *SQLRepository) ListCheckConfigs(ctx context.Context) ([]*domain.CheckConfig, error) {
	query := `
		SELECT id, name, description, version, expression, flag,
		       fraud_delta, quality_delta, enabled
		FROM check_configs
		WHERE enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []*domain.CheckConfig
	for rows.Next() {
		var check domain.CheckConfig
		var flag string
		var enabled int

		if err := rows.Scan(
			&check.ID, &check.Name, &check.Description, &check.Version,
			&check.Expression, &flag,
			&check.FraudDelta, &check.QualityDelta, &enabled,
		); err != nil {
			return nil, err
		}

		check.Flag = domain.Flag(flag)
		check.Enabled = enabled == 1
		checks = append(checks, &check)
	}

	return checks, rows.Err()
}

// DeleteCheckConfig soft-deletes a check by setting enabled = 0.
func (r *SQLRepository) DeleteCheckConfig(ctx context.Context, checkID string) error {
	if checkID == "" {
		return fmt.Errorf("%w: checkID is required", ErrInvalidInput)
	}

	query := `
		UPDATE check_configs
		SET enabled = 0, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), checkID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
