package domain

// CheckConfig defines an operator-supplied heuristic check.
// The CEL expression is evaluated against the submission and the author's
// history signals; a true result attaches Flag and applies the deltas.
type CheckConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// CEL boolean expression over title, description, evidence_url,
	// title_length, description_length, recent_count, rejection_rate.
	Expression string `json:"expression"`

	// Flag attached when the expression is true.
	Flag Flag `json:"flag"`

	// Score deltas applied when the expression is true.
	FraudDelta   float64 `json:"fraudDelta"`
	QualityDelta float64 `json:"qualityDelta"`

	Enabled bool `json:"enabled"`
}

// CheckResult is the outcome of one custom check evaluation.
type CheckResult struct {
	CheckID      string  `json:"checkId"`
	Triggered    bool    `json:"triggered"`
	Flag         Flag    `json:"flag,omitempty"`
	Err          string  `json:"err,omitempty"`
	ProcessMs    int64   `json:"processMs"`
	FraudDelta   float64 `json:"fraudDelta,omitempty"`
	QualityDelta float64 `json:"qualityDelta,omitempty"`
}
