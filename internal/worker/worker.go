// Package worker provides async submission assessment for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/bookofrecords/sentinel/internal/domain"
	"github.com/bookofrecords/sentinel/internal/engine"
	"github.com/google/uuid"
)

// Worker assesses submissions asynchronously from the EventBus.
// It consumes created-submission events, runs them through the risk
// engine and persists the resulting assessment.
type Worker struct {
	bus    domain.EventBus
	repo   domain.Repository
	engine *engine.Engine

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, eng *engine.Engine) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		engine: eng,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the created-submission topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicSubmissionCreated, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("worker started", "topic", domain.TopicSubmissionCreated)
	return nil
}

func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processSubmission(ctx, msg)
}

// processSubmission runs a created submission through the assessment
// pipeline.
func (w *Worker) processSubmission(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var sub domain.Submission
	if err := json.Unmarshal(msg.Payload, &sub); err != nil {
		slog.Error("failed to parse submission message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	slog.Debug("assessing submission",
		"submission_id", sub.ID,
		"author_id", sub.AuthorID,
	)

	input := domain.SubmissionInput{
		Title:       sub.Title,
		Description: sub.Description,
		EvidenceURL: sub.EvidenceURL,
		AuthorID:    sub.AuthorID,
	}

	result, err := w.engine.Assess(ctx, &input)
	if err != nil {
		slog.Error("assessment failed",
			"submission_id", sub.ID,
			"error", err,
		)
		return err
	}

	result.ID = uuid.New().String()
	result.SubmissionID = sub.ID
	result.AuthorID = sub.AuthorID

	if w.repo != nil {
		if err := w.repo.SaveAssessment(ctx, result); err != nil {
			slog.Error("failed to save assessment",
				"submission_id", sub.ID,
				"error", err,
			)
		}
	}

	payload, _ := json.Marshal(result)
	if err := w.bus.Publish(ctx, domain.TopicSubmissionAssessed, payload); err != nil {
		slog.Error("failed to publish assessment",
			"submission_id", sub.ID,
			"error", err,
		)
	}

	if len(result.Flags) > 0 {
		if err := w.bus.Publish(ctx, domain.TopicSubmissionFlagged, payload); err != nil {
			slog.Error("failed to publish flagged submission",
				"submission_id", sub.ID,
				"error", err,
			)
		}
	}

	slog.Info("submission assessed",
		"submission_id", sub.ID,
		"author_id", sub.AuthorID,
		"action", result.RecommendedAction,
		"fraud_score", result.FraudScore,
		"flag_count", len(result.Flags),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
