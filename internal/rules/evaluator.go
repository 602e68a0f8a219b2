package rules

import (
	"strings"

	"github.com/turncast/turncast/internal/models"
)

// Rejection reasons, checked in order. The first failed check rejects.
const (
	ReasonUnsuitable     = "unsuitable_content"
	ReasonNoWinner       = "no_winner"
	ReasonTurnCount      = "turn_count_mismatch"
	ReasonTurnSimilarity = "low_turn_similarity"
	ReasonReconstruction = "reconstruction_mismatch"
)

// Thresholds gate the similarity checks.
type Thresholds struct {
	TurnSimilarity float64
	Reconstruction float64
}

// DefaultThresholds match the pipeline defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TurnSimilarity: 0.70,
		Reconstruction: 0.60,
	}
}

// Evaluator applies the deterministic acceptance rules to a judged winner.
type Evaluator struct {
	Thresholds Thresholds
}

func NewEvaluator(t Thresholds) Evaluator {
	if t.TurnSimilarity == 0 && t.Reconstruction == 0 {
		t = DefaultThresholds()
	}
	return Evaluator{Thresholds: t}
}

// Evaluate gates the winner. Checks run in strict order: suitability,
// winner presence, turn-count majority, per-turn similarity majority, and
// full-transcript reconstruction.
func (e Evaluator) Evaluate(sourceText string, judgment models.JudgmentRecord, results map[string]*models.ParseResult) models.EvaluationVerdict {
	if judgment.Winner == models.WinnerUnsuitable {
		return models.EvaluationVerdict{Reason: ReasonUnsuitable}
	}
	if !judgment.WinnerIsModel() {
		return models.EvaluationVerdict{Reason: ReasonNoWinner}
	}

	winner, ok := results[judgment.Winner]
	if !ok {
		return models.EvaluationVerdict{Reason: ReasonNoWinner}
	}

	verdict := models.EvaluationVerdict{
		ComparableModels: len(results),
		TurnSimilarities: make(map[string]float64),
	}

	// Turn-count majority. The winner votes for its own count.
	for _, r := range results {
		if r.TurnCount() == winner.TurnCount() {
			verdict.CountVotes++
		}
	}
	if verdict.CountVotes*2 <= verdict.ComparableModels {
		verdict.Reason = ReasonTurnCount
		return verdict
	}

	// Per-turn similarity majority over models that agree on the count.
	verdict.SimilarityVotes = 1 // winner
	verdict.TurnSimilarities[judgment.Winner] = 1.0
	for id, r := range results {
		if id == judgment.Winner || r.TurnCount() != winner.TurnCount() {
			continue
		}
		avg := averageTurnSimilarity(winner, r)
		verdict.TurnSimilarities[id] = avg
		if avg > e.Thresholds.TurnSimilarity {
			verdict.SimilarityVotes++
		}
	}
	if verdict.SimilarityVotes*2 <= verdict.ComparableModels {
		verdict.Reason = ReasonTurnSimilarity
		return verdict
	}

	// Reconstruction: the winner's extraction must still resemble the
	// transcript it came from.
	verdict.Reconstruction = Ratio(winner.Reconstruct(), sourceText)
	if verdict.Reconstruction < e.Thresholds.Reconstruction {
		verdict.Reason = ReasonReconstruction
		return verdict
	}

	verdict.Accepted = true
	return verdict
}

// averageTurnSimilarity aligns turns by id and averages the similarity of
// their combined action and observation text.
func averageTurnSimilarity(a, b *models.ParseResult) float64 {
	if a.TurnCount() == 0 {
		return 1.0
	}
	var sum float64
	for i := range a.Turns {
		sum += Ratio(turnText(a.Turns[i]), turnText(b.Turns[i]))
	}
	return sum / float64(a.TurnCount())
}

func turnText(t models.Turn) string {
	var parts []string
	if t.Action.Content != "" {
		parts = append(parts, t.Action.Content)
	}
	if t.Observation.Content != "" {
		parts = append(parts, t.Observation.Content)
	}
	return strings.Join(parts, "\n")
}
