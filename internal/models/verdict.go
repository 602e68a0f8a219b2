package models

// EvaluationVerdict is the deterministic evaluator's gate decision for a
// judged winner.
type EvaluationVerdict struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`

	// Diagnostics retained for the full record.
	ComparableModels int                `json:"comparable_models,omitempty"`
	CountVotes       int                `json:"count_votes,omitempty"`
	SimilarityVotes  int                `json:"similarity_votes,omitempty"`
	TurnSimilarities map[string]float64 `json:"turn_similarities,omitempty"`
	Reconstruction   float64            `json:"reconstruction,omitempty"`
}
