// Package domain defines the core interfaces and types for Sentinel.
package domain

import (
	"strings"
	"time"
)

// Submission statuses mirror the record lifecycle on the platform.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusRejected = "rejected"
	StatusBroken   = "broken"
)

// ValidStatus reports whether s is a known submission status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected, StatusBroken:
		return true
	}
	return false
}

// SubmissionInput is the caller-provided claim to assess.
// It is immutable for the duration of one assessment.
type SubmissionInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	EvidenceURL string `json:"evidenceUrl"`
	AuthorID    string `json:"authorId"`
}

// HasEvidence reports whether the evidence link is non-blank.
func (in *SubmissionInput) HasEvidence() bool {
	return strings.TrimSpace(in.EvidenceURL) != ""
}

// Submission is a persisted record claim.
type Submission struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"authorId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EvidenceURL string    `json:"evidenceUrl,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HistoryRecord is the slim projection of a past submission used by the
// duplicate and frequency checks.
type HistoryRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}
