// Package activity provides author submission-history reads for the engine.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/bookofrecords/sentinel/internal/domain"
)

// Default history parameters for the duplicate and frequency checks.
const (
	DefaultWindow = 7 * 24 * time.Hour
	DefaultLimit  = 10
)

// Service reads an author's submission history.
type Service struct {
	repo domain.Repository
}

// NewService creates a new activity service.
func NewService(repo domain.Repository) *Service {
	return &Service{repo: repo}
}

// RecentSubmissions returns the author's most recent submissions within the
// trailing window, newest first, capped at limit.
func (s *Service) RecentSubmissions(ctx context.Context, authorID string, window time.Duration, limit int) ([]*domain.HistoryRecord, error) {
	if authorID == "" {
		return nil, fmt.Errorf("authorID is required")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	since := time.Now().Add(-window)
	return s.repo.RecentByAuthor(ctx, authorID, since, limit)
}

// RejectionStats returns the author's total submission count and how many
// of those were rejected, over the author's entire history.
func (s *Service) RejectionStats(ctx context.Context, authorID string) (total int, rejected int, err error) {
	if authorID == "" {
		return 0, 0, fmt.Errorf("authorID is required")
	}

	statuses, err := s.repo.StatusesByAuthor(ctx, authorID)
	if err != nil {
		return 0, 0, err
	}

	for _, status := range statuses {
		if status == domain.StatusRejected {
			rejected++
		}
	}

	return len(statuses), rejected, nil
}
