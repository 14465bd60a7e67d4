package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bookofrecords/sentinel/internal/domain"
	"github.com/bookofrecords/sentinel/internal/engine"
	"github.com/bookofrecords/sentinel/internal/repository"
	"github.com/bookofrecords/sentinel/internal/rules"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	repo   domain.Repository
	engine *engine.Engine
	rules  *rules.Engine
	bus    domain.EventBus

	// asyncAssess defers assessment of created submissions to the
	// worker pool instead of scoring inline.
	asyncAssess bool
}

// NewHandler creates a new Handler.
func NewHandler(repo domain.Repository, eng *engine.Engine, ruleEngine *rules.Engine, bus domain.EventBus, asyncAssess bool) *Handler {
	return &Handler{
		repo:        repo,
		engine:      eng,
		rules:       ruleEngine,
		bus:         bus,
		asyncAssess: asyncAssess,
	}
}

// submissionRequest is the inbound claim payload. Web clients historically
// post googleDriveLink/userId; both spellings are accepted.
type submissionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	EvidenceURL string `json:"evidenceUrl"`
	AuthorID    string `json:"authorId"`

	GoogleDriveLink string `json:"googleDriveLink"`
	UserID          string `json:"userId"`
}

func (req *submissionRequest) toInput() domain.SubmissionInput {
	input := domain.SubmissionInput{
		Title:       req.Title,
		Description: req.Description,
		EvidenceURL: req.EvidenceURL,
		AuthorID:    req.AuthorID,
	}
	if input.EvidenceURL == "" {
		input.EvidenceURL = req.GoogleDriveLink
	}
	if input.AuthorID == "" {
		input.AuthorID = req.UserID
	}
	return input
}

// Assess scores a submission without persisting anything.
// POST /api/v1/assess
func (h *Handler) Assess(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := req.toInput()
	result, err := h.engine.Assess(r.Context(), &input)
	if err != nil {
		writeAssessError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// CreateSubmission stores a submission and assesses it.
// POST /api/v1/submissions
func (h *Handler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input := req.toInput()

	sub := &domain.Submission{
		ID:          uuid.New().String(),
		AuthorID:    input.AuthorID,
		Title:       input.Title,
		Description: input.Description,
		EvidenceURL: input.EvidenceURL,
		Status:      domain.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	if h.asyncAssess {
		// Persist first, let the worker score it off the created event.
		if err := h.repo.SaveSubmission(r.Context(), sub); err != nil {
			if errors.Is(err, repository.ErrInvalidInput) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			slog.Error("save submission failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save submission")
			return
		}

		h.publish(r, domain.TopicSubmissionCreated, sub)

		writeJSON(w, http.StatusAccepted, map[string]any{
			"submission": sub,
			"status":     "assessment_pending",
		})
		return
	}

	// Score before persisting so the submission never matches itself in
	// the author's recent history.
	result, err := h.engine.Assess(r.Context(), &input)
	if err != nil {
		writeAssessError(w, err)
		return
	}

	if err := h.repo.SaveSubmission(r.Context(), sub); err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("save submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save submission")
		return
	}

	result.ID = uuid.New().String()
	result.SubmissionID = sub.ID
	result.AuthorID = sub.AuthorID

	if err := h.repo.SaveAssessment(r.Context(), result); err != nil {
		slog.Error("save assessment failed", "error", err, "submission_id", sub.ID)
		writeError(w, http.StatusInternalServerError, "failed to save assessment")
		return
	}

	h.publish(r, domain.TopicSubmissionAssessed, result)
	if len(result.Flags) > 0 {
		h.publish(r, domain.TopicSubmissionFlagged, result)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"submission": sub,
		"assessment": result,
	})
}

// GetSubmission retrieves a submission by ID.
// GET /api/v1/submissions/{id}
func (h *Handler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sub, err := h.repo.GetSubmission(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "submission not found")
			return
		}
		slog.Error("get submission failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to get submission")
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

// GetSubmissionAssessment retrieves the assessment for a submission.
// GET /api/v1/submissions/{id}/assessment
func (h *Handler) GetSubmissionAssessment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.repo.GetAssessmentBySubmission(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "assessment not found")
			return
		}
		slog.Error("get assessment failed", "error", err, "submission_id", id)
		writeError(w, http.StatusInternalServerError, "failed to get assessment")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// UpdateSubmissionStatus transitions a submission's lifecycle status.
// PATCH /api/v1/submissions/{id}/status
func (h *Handler) UpdateSubmissionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !domain.ValidStatus(body.Status) {
		writeError(w, http.StatusBadRequest, "invalid status: "+body.Status)
		return
	}

	if err := h.repo.UpdateSubmissionStatus(r.Context(), id, body.Status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "submission not found")
			return
		}
		slog.Error("update status failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"status": body.Status,
	})
}

// GetAssessment retrieves an assessment by its own ID.
// GET /api/v1/assessments/{id}
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.repo.GetAssessment(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "assessment not found")
			return
		}
		slog.Error("get assessment failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to get assessment")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// CreateCheck validates, persists and loads a custom check.
// POST /api/v1/checks
func (h *Handler) CreateCheck(w http.ResponseWriter, r *http.Request) {
	var check domain.CheckConfig
	if err := json.NewDecoder(r.Body).Decode(&check); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if check.ID == "" {
		check.ID = uuid.New().String()
	}

	if err := h.rules.ValidateCheck(&check); err != nil {
		writeError(w, http.StatusBadRequest, "invalid check: "+err.Error())
		return
	}

	if err := h.repo.SaveCheckConfig(r.Context(), &check); err != nil {
		slog.Error("save check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save check")
		return
	}

	if check.Enabled {
		if err := h.rules.LoadCheck(&check); err != nil {
			slog.Error("load check failed", "error", err, "check_id", check.ID)
		}
	}

	writeJSON(w, http.StatusCreated, check)
}

// ListChecks lists all check configurations.
// GET /api/v1/checks
func (h *Handler) ListChecks(w http.ResponseWriter, r *http.Request) {
	checks, err := h.repo.ListCheckConfigs(r.Context())
	if err != nil {
		slog.Error("list checks failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list checks")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"checks": checks,
		"count":  len(checks),
	})
}

// GetCheck retrieves a check configuration by ID.
// GET /api/v1/checks/{id}
func (h *Handler) GetCheck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	check, err := h.repo.GetCheckConfig(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "check not found")
			return
		}
		slog.Error("get check failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to get check")
		return
	}

	writeJSON(w, http.StatusOK, check)
}

// DeleteCheck disables a check and unloads it from the rule engine.
// DELETE /api/v1/checks/{id}
func (h *Handler) DeleteCheck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.DeleteCheckConfig(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "check not found")
			return
		}
		slog.Error("delete check failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete check")
		return
	}

	h.rules.UnloadCheck(id)

	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// ReloadChecks reloads all enabled checks from storage.
// POST /api/v1/checks/reload
func (h *Handler) ReloadChecks(w http.ResponseWriter, r *http.Request) {
	checks, err := h.repo.ListCheckConfigs(r.Context())
	if err != nil {
		slog.Error("list checks failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list checks")
		return
	}

	enabled := make([]*domain.CheckConfig, 0, len(checks))
	for _, c := range checks {
		if c.Enabled {
			enabled = append(enabled, c)
		}
	}

	if err := h.rules.ReloadChecks(enabled); err != nil {
		slog.Error("reload checks failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reload checks")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "reloaded",
		"loaded": h.rules.ChecksCount(),
	})
}

// Health returns liveness.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready checks storage connectivity.
// GET /ready
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) publish(r *http.Request, topic string, payload any) {
	if h.bus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal event failed", "error", err, "topic", topic)
		return
	}
	if err := h.bus.Publish(r.Context(), topic, data); err != nil {
		slog.Warn("publish event failed", "error", err, "topic", topic)
	}
}

func writeAssessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrHistoryUnavailable):
		slog.Error("assessment failed", "error", err)
		writeError(w, http.StatusInternalServerError, "author history unavailable")
	default:
		slog.Error("assessment failed", "error", err)
		writeError(w, http.StatusInternalServerError, "assessment failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
