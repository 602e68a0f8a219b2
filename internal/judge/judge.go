// Package judge runs the comparative oracle query over the candidate
// extractions and normalizes its verdict. The judge selects a winner, it
// never edits anyone's turns.
package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/turncast/turncast/internal/models"
	"github.com/turncast/turncast/internal/oracle"
	"github.com/turncast/turncast/internal/validation"
)

// ErrInsufficientModels means fewer than two extractions survived the
// pipeline, so there is nothing to compare.
var ErrInsufficientModels = errors.New("judging requires at least two successful extractions")

const judgeInstructions = `You compare candidate segmentations of the same terminal transcript. The
candidates are labeled model_a, model_b, and so on. Pick the label whose
turns best match the actual session, or "tie" when two are equally good,
or "all_incorrect" when every candidate misreads the transcript. Also
decide whether the underlying content is suitable as training data; if it
is not, set suitable_for_training to false and explain with rejection_type
and rejection_reason. List concrete problems per candidate in
"<label>_issues" arrays. Respond with JSON:
{"winner": "model_a", "confidence": 0.0-1.0, "reason": "...",
 "model_a_issues": [], "model_b_issues": [],
 "suitable_for_training": true, "rejection_type": "", "rejection_reason": ""}.`

// Judge issues the comparison query.
type Judge struct{}

// Decide judges the candidate results and maps the anonymized labels back
// onto model IDs.
func (Judge) Decide(ctx context.Context, s *oracle.Session, sourceText string, results map[string]*models.ParseResult) (models.JudgmentRecord, error) {
	if len(results) < 2 {
		return models.JudgmentRecord{}, ErrInsufficientModels
	}

	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	labelToModel := make(map[string]string, len(ids))
	candidates := make(map[string]any, len(ids))
	for i, id := range ids {
		label := fmt.Sprintf("model_%c", 'a'+i)
		labelToModel[label] = id
		candidates[label] = results[id].Simplify()
	}

	input, err := json.Marshal(map[string]any{
		"transcript": sourceText,
		"candidates": candidates,
	})
	if err != nil {
		return models.JudgmentRecord{}, fmt.Errorf("encoding judge input: %w", err)
	}

	var raw map[string]any
	err = s.Ask(ctx, oracle.Request{
		Task:         "judge",
		Instructions: judgeInstructions,
		Input:        string(input),
	}, validation.JudgeSchema, &raw)
	if err != nil {
		return models.JudgmentRecord{}, fmt.Errorf("judging candidates: %w", err)
	}

	return buildRecord(raw, labelToModel), nil
}

func buildRecord(raw map[string]any, labelToModel map[string]string) models.JudgmentRecord {
	record := models.JudgmentRecord{
		Reason:          asString(raw["reason"]),
		RejectionType:   asString(raw["rejection_type"]),
		RejectionReason: asString(raw["rejection_reason"]),
	}
	if c, ok := raw["confidence"].(float64); ok {
		record.Confidence = c
	}

	record.Issues = make(map[string][]string)
	for label, model := range labelToModel {
		issues := asStringSlice(raw[label+"_issues"])
		if len(issues) > 0 {
			record.Issues[model] = issues
		}
	}
	if len(record.Issues) == 0 {
		record.Issues = nil
	}

	record.Winner = resolveWinner(asString(raw["winner"]), labelToModel)

	// Unsuitability trumps whoever won the comparison.
	if suitable, ok := raw["suitable_for_training"].(bool); ok && !suitable {
		record.Winner = models.WinnerUnsuitable
	}
	return record
}

func resolveWinner(label string, labelToModel map[string]string) string {
	switch label {
	case "tie":
		return models.WinnerTie
	case "all_incorrect", "both_incorrect":
		return models.WinnerAllIncorrect
	}
	if model, ok := labelToModel[label]; ok {
		return model
	}
	// The judge also sometimes answers with the model ID directly.
	for _, model := range labelToModel {
		if model == label {
			return model
		}
	}
	return models.WinnerAllIncorrect
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
