package engine

import (
	"github.com/bookofrecords/sentinel/internal/domain"
)

// Fixed suggestion texts, surfaced to the submitting user.
const (
	suggestionShortDescription = "Add more details about your achievement (minimum 100 characters recommended)"
	suggestionShortTitle       = "Provide a more descriptive title (minimum 10 characters)"
	suggestionEvidence         = "Upload video/photo proof to Google Drive and ensure the link is publicly accessible"
	suggestionDuplicate        = "This appears similar to a recent submission. Please ensure you are submitting a unique record"
	suggestionInappropriate    = "Content may violate community guidelines. Please review and revise"
	suggestionLowQuality       = "Improve content quality with specific details, proper grammar, and clear descriptions"
)

// buildSuggestions maps flags to suggestion texts in a fixed priority
// order, one suggestion per category. The two evidence flags share one
// suggestion. HIGH_SUBMISSION_FREQUENCY, HIGH_REJECTION_HISTORY and
// SPAM_DETECTED currently contribute no suggestion text.
func buildSuggestions(flags []domain.Flag) []string {
	has := make(map[domain.Flag]bool, len(flags))
	for _, f := range flags {
		has[f] = true
	}

	suggestions := []string{}

	if has[domain.FlagShortDescription] {
		suggestions = append(suggestions, suggestionShortDescription)
	}
	if has[domain.FlagShortTitle] {
		suggestions = append(suggestions, suggestionShortTitle)
	}
	if has[domain.FlagMissingEvidence] || has[domain.FlagInvalidEvidenceLink] {
		suggestions = append(suggestions, suggestionEvidence)
	}
	if has[domain.FlagDuplicateSubmission] {
		suggestions = append(suggestions, suggestionDuplicate)
	}
	if has[domain.FlagInappropriateContent] {
		suggestions = append(suggestions, suggestionInappropriate)
	}
	if has[domain.FlagLowQualityContent] {
		suggestions = append(suggestions, suggestionLowQuality)
	}

	return suggestions
}
