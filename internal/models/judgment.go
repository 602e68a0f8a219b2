package models

// Non-model winner values. Anything else in Winner is a model ID.
const (
	WinnerTie          = "tie"
	WinnerAllIncorrect = "all_incorrect"
	WinnerUnsuitable   = "unsuitable"
)

// JudgmentRecord is the judge's comparative verdict over the candidate
// extractions. The judge selects, it never edits.
type JudgmentRecord struct {
	Winner          string              `json:"winner"`
	Confidence      float64             `json:"confidence"`
	Reason          string              `json:"reason"`
	Issues          map[string][]string `json:"issues,omitempty"`
	RejectionType   string              `json:"rejection_type,omitempty"`
	RejectionReason string              `json:"rejection_reason,omitempty"`
}

// WinnerIsModel reports whether the verdict names an actual model rather
// than a tie/all-incorrect/unsuitable outcome.
func (j *JudgmentRecord) WinnerIsModel() bool {
	switch j.Winner {
	case WinnerTie, WinnerAllIncorrect, WinnerUnsuitable, "":
		return false
	}
	return true
}
