package domain

import (
	"context"
	"errors"
)

// ErrModerationUnavailable is returned by a Moderator when the model call
// failed or its reply could not be parsed. The engine recovers from it
// locally: the assessment proceeds without model-derived flags.
var ErrModerationUnavailable = errors.New("moderation unavailable")

// Content quality levels reported by the moderation model.
const (
	QualityHigh   = "high"
	QualityMedium = "medium"
	QualityLow    = "low"
)

// ModerationVerdict is the structured output of the content-moderation model.
type ModerationVerdict struct {
	HasInappropriateContent bool     `json:"hasInappropriateContent"`
	HasSpam                 bool     `json:"hasSpam"`
	ContentQuality          string   `json:"contentQuality"`
	Concerns                []string `json:"concerns"`
}

// Moderator analyzes submission text with an external content-moderation
// model. Implementations return ErrModerationUnavailable (possibly wrapped)
// on any transport or parse failure.
type Moderator interface {
	Moderate(ctx context.Context, text string) (*ModerationVerdict, error)
}

// ModerationConfig holds the moderation model client settings.
type ModerationConfig struct {
	// APIKey is the bearer credential for the model gateway. Required;
	// the service refuses to start without it.
	APIKey string

	// BaseURL overrides the chat-completions endpoint (model gateway).
	BaseURL string

	// Model is the model identifier sent with every request.
	Model string

	// TimeoutSecs bounds each moderation call. A timeout is treated the
	// same as any other moderation failure.
	TimeoutSecs int

	// VerdictTTLSecs controls how long cached verdicts are kept when a
	// cache is configured. Zero disables verdict caching.
	VerdictTTLSecs int
}
