package domain

// Flag is a discrete named issue code attached to an assessment.
type Flag string

// Built-in flags, in the order the engine evaluates them.
const (
	FlagShortDescription     Flag = "SHORT_DESCRIPTION"
	FlagShortTitle           Flag = "SHORT_TITLE"
	FlagMissingEvidence      Flag = "MISSING_EVIDENCE"
	FlagInvalidEvidenceLink  Flag = "INVALID_EVIDENCE_LINK"
	FlagDuplicateSubmission  Flag = "DUPLICATE_SUBMISSION"
	FlagHighFrequency        Flag = "HIGH_SUBMISSION_FREQUENCY"
	FlagHighRejectionHistory Flag = "HIGH_REJECTION_HISTORY"
	FlagInappropriateContent Flag = "INAPPROPRIATE_CONTENT"
	FlagSpamDetected         Flag = "SPAM_DETECTED"
	FlagLowQualityContent    Flag = "LOW_QUALITY_CONTENT"
)

// Recommended actions.
const (
	ActionApprove = "approve"
	ActionReview  = "review"
	ActionReject  = "reject"
)

// AssessmentResult is the engine's verdict for one submission.
// Both scores are clamped to [0,1] and rounded to 2 decimals.
type AssessmentResult struct {
	ID                  string            `json:"id,omitempty"`
	SubmissionID        string            `json:"submissionId,omitempty"`
	AuthorID            string            `json:"authorId,omitempty"`
	FraudScore          float64           `json:"fraudScore"`
	ContentQualityScore float64           `json:"contentQualityScore"`
	Flags               []Flag            `json:"flags"`
	RecommendedAction   string            `json:"recommendedAction"`
	Suggestions         []string          `json:"suggestions"`
	Details             AssessmentDetails `json:"details"`
}

// AssessmentDetails carries processing metadata for the assessment.
type AssessmentDetails struct {
	TextLength int    `json:"textLength"`
	FlagCount  int    `json:"flagCount"`
	Timestamp  string `json:"timestamp"` // RFC 3339
}

// HasFlag reports whether the result carries the given flag.
func (r *AssessmentResult) HasFlag(f Flag) bool {
	for _, have := range r.Flags {
		if have == f {
			return true
		}
	}
	return false
}
