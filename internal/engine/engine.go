// Package engine implements the submission risk-assessment engine.
//
// The engine accumulates heuristic signals sequentially: text-quality
// checks, evidence checks, author-history checks, operator-defined custom
// checks, and an external content-moderation verdict, then clamps the two
// scores, decides a recommended action, and attaches suggestions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bookofrecords/sentinel/internal/activity"
	"github.com/bookofrecords/sentinel/internal/domain"
	"github.com/bookofrecords/sentinel/internal/rules"
)

var (
	// ErrNotConfigured indicates the moderation model credential is
	// absent. The whole service is unusable without it.
	ErrNotConfigured = errors.New("moderation is not configured")

	// ErrHistoryUnavailable indicates a mandatory author-history read
	// failed. The assessment fails closed: fraud and frequency signals
	// are load-bearing for the decision.
	ErrHistoryUnavailable = errors.New("submission history unavailable")

	// ErrInvalidInput indicates a required submission field is missing.
	ErrInvalidInput = errors.New("invalid submission input")
)

// Heuristic thresholds and score deltas.
const (
	minDescriptionLen = 100
	minTitleLen       = 10

	trustedEvidenceHost = "drive.google.com"

	duplicateThreshold     = 0.8
	highFrequencyCount     = 3
	rejectionHistoryFloor  = 2
	rejectionRateThreshold = 0.7

	rejectFraudThreshold = 0.7
	reviewFraudThreshold = 0.4
	reviewFlagCount      = 3
)

// Engine assesses record submissions. It is stateless and safe for
// concurrent use.
type Engine struct {
	activity  *activity.Service
	moderator domain.Moderator
	checks    *rules.Engine // optional custom checks
}

// New creates an assessment engine. The moderator is required: its
// credential is validated at construction time by the moderation package,
// and a nil moderator here means the service is misconfigured.
func New(activitySvc *activity.Service, moderator domain.Moderator, checks *rules.Engine) (*Engine, error) {
	if activitySvc == nil {
		return nil, fmt.Errorf("activity service is required")
	}
	if moderator == nil {
		return nil, ErrNotConfigured
	}

	return &Engine{
		activity:  activitySvc,
		moderator: moderator,
		checks:    checks,
	}, nil
}

// Assess evaluates one submission and returns its verdict.
//
// History-read failures abort with ErrHistoryUnavailable. A moderation
// failure is recovered locally: the assessment proceeds without
// model-derived flags, which yields a more lenient score by design of the
// caller's moderation pipeline.
func (e *Engine) Assess(ctx context.Context, input *domain.SubmissionInput) (*domain.AssessmentResult, error) {
	if e.moderator == nil {
		return nil, ErrNotConfigured
	}
	if input == nil || input.Title == "" || input.Description == "" || input.AuthorID == "" {
		return nil, fmt.Errorf("%w: title, description and authorId are required", ErrInvalidInput)
	}

	fraud := 0.0
	quality := 1.0
	fl := newFlagList()

	// Text-quality heuristics. Description is checked before title: the
	// flag order is part of the result contract. Lengths are measured in
	// characters, not bytes.
	if utf8.RuneCountInString(input.Description) < minDescriptionLen {
		fl.add(domain.FlagShortDescription)
		quality -= 0.2
	}
	if utf8.RuneCountInString(input.Title) < minTitleLen {
		fl.add(domain.FlagShortTitle)
		quality -= 0.1
	}

	// Evidence heuristics. The two checks are independent: missing looks
	// at the trimmed link, invalid at the raw one. An empty link is only
	// MISSING_EVIDENCE; a whitespace-only link is blank yet non-empty and
	// fires both.
	if !input.HasEvidence() {
		fl.add(domain.FlagMissingEvidence)
		fraud += 0.3
		quality -= 0.3
	}
	if input.EvidenceURL != "" && !strings.Contains(input.EvidenceURL, trustedEvidenceHost) {
		fl.add(domain.FlagInvalidEvidenceLink)
		fraud += 0.2
	}

	// Duplicate and frequency checks over the trailing 7-day window.
	recent, err := e.activity.RecentSubmissions(ctx, input.AuthorID, activity.DefaultWindow, activity.DefaultLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)
	}

	for _, rec := range recent {
		if TitleSimilarity(input.Title, rec.Title) > duplicateThreshold {
			fl.add(domain.FlagDuplicateSubmission)
			fraud += 0.3
			break
		}
	}

	if len(recent) >= highFrequencyCount {
		fl.add(domain.FlagHighFrequency)
		fraud += 0.2
	}

	// Rejection history over the author's entire record.
	total, rejected, err := e.activity.RejectionStats(ctx, input.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)
	}

	rejectionRate := 0.0
	if total > 0 {
		rejectionRate = float64(rejected) / float64(total)
	}
	if total > rejectionHistoryFloor && rejectionRate > rejectionRateThreshold {
		fl.add(domain.FlagHighRejectionHistory)
		fraud += 0.2
	}

	// Operator-defined custom checks.
	if e.checks != nil && e.checks.ChecksCount() > 0 {
		sig := &rules.Signals{
			Title:         input.Title,
			Description:   input.Description,
			EvidenceURL:   input.EvidenceURL,
			AuthorID:      input.AuthorID,
			RecentCount:   len(recent),
			RejectionRate: rejectionRate,
		}
		for _, res := range e.checks.EvaluateAll(sig) {
			if res.Err != "" {
				slog.Warn("custom check failed", "check_id", res.CheckID, "error", res.Err)
				continue
			}
			if res.Triggered {
				fl.add(res.Flag)
				fraud += res.FraudDelta
				quality += res.QualityDelta
			}
		}
	}

	// External content moderation. Failures are swallowed: a moderation
	// outage must not block the whole pipeline.
	text := "Title: " + input.Title + "\nDescription: " + input.Description

	verdict, err := e.moderator.Moderate(ctx, text)
	if err != nil {
		slog.Warn("content moderation unavailable, skipping",
			"author_id", input.AuthorID,
			"error", err,
		)
	} else {
		if verdict.HasInappropriateContent {
			fl.add(domain.FlagInappropriateContent)
			fraud += 0.5
		}
		if verdict.HasSpam {
			fl.add(domain.FlagSpamDetected)
			fraud += 0.4
		}
		if verdict.ContentQuality == domain.QualityLow {
			fl.add(domain.FlagLowQualityContent)
			quality -= 0.2
		}
	}

	fraud = round2(clamp01(fraud))
	quality = round2(clamp01(quality))

	// Reject is checked first and short-circuits; the review rule only
	// applies when reject did not fire.
	action := domain.ActionApprove
	switch {
	case fraud > rejectFraudThreshold || fl.has(domain.FlagInappropriateContent):
		action = domain.ActionReject
	case fraud > reviewFraudThreshold || fl.len() >= reviewFlagCount:
		action = domain.ActionReview
	}

	flags := fl.all()

	return &domain.AssessmentResult{
		FraudScore:          fraud,
		ContentQualityScore: quality,
		Flags:               flags,
		RecommendedAction:   action,
		Suggestions:         buildSuggestions(flags),
		Details: domain.AssessmentDetails{
			TextLength: utf8.RuneCountInString(text),
			FlagCount:  len(flags),
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

// flagList is an insertion-ordered flag set.
type flagList struct {
	flags []domain.Flag
	seen  map[domain.Flag]bool
}

func newFlagList() *flagList {
	return &flagList{
		flags: []domain.Flag{},
		seen:  make(map[domain.Flag]bool),
	}
}

func (l *flagList) add(f domain.Flag) {
	if l.seen[f] {
		return
	}
	l.seen[f] = true
	l.flags = append(l.flags, f)
}

func (l *flagList) has(f domain.Flag) bool {
	return l.seen[f]
}

func (l *flagList) len() int {
	return len(l.flags)
}

func (l *flagList) all() []domain.Flag {
	return l.flags
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

// round2 rounds to 2 decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
