package boundary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/turncast/turncast/internal/oracle"
	"github.com/turncast/turncast/internal/tokens"
	"github.com/turncast/turncast/internal/transcript"
	"github.com/turncast/turncast/internal/validation"
)

// contextChars caps each context-window line shown to the oracle.
const contextChars = 100

// defaultBatchTokens bounds the estimated size of one confirm request.
const defaultBatchTokens = 4000

const confirmInstructions = `You verify turn boundaries in a terminal transcript. Each entry is a line
that matched a prompt pattern, with its neighboring lines for context.
Decide which entries are real prompts starting a new command and which are
program output that merely looks like a prompt. If a boundary is off by a
line, report the corrected line number. Respond with JSON:
{"confirmed": [{"line": N, "corrected_line": N}], "false_positives": [{"line": N, "reason": "..."}]}.`

// Validator confirms candidate boundaries with the oracle, batching
// candidates to keep each request under a token budget.
type Validator struct {
	BatchTokens int
}

type candidateWindow struct {
	Line    int    `json:"line"`
	Prev    string `json:"prev"`
	Current string `json:"current"`
	Next    string `json:"next"`
}

type confirmResponse struct {
	Confirmed []struct {
		Line          int `json:"line"`
		CorrectedLine int `json:"corrected_line"`
	} `json:"confirmed"`
	FalsePositives []struct {
		Line   int    `json:"line"`
		Reason string `json:"reason"`
	} `json:"false_positives"`
}

// Confirm filters candidates down to confirmed boundaries. A valid oracle
// response that confirms nothing falls back to the full candidate set; an
// oracle failure propagates.
func (v Validator) Confirm(ctx context.Context, s *oracle.Session, tx *transcript.Transcript, cands []Candidate) ([]Boundary, error) {
	if len(cands) == 0 {
		return nil, nil
	}

	budget := v.BatchTokens
	if budget <= 0 {
		budget = defaultBatchTokens
	}

	promptByLine := make(map[int]string, len(cands))
	for _, c := range cands {
		promptByLine[c.Line] = c.Prompt
	}

	confirmed := make(map[int]bool)
	for _, batch := range v.batch(tx, cands, budget) {
		input, err := json.Marshal(map[string]any{"candidates": batch})
		if err != nil {
			return nil, fmt.Errorf("encoding candidate batch: %w", err)
		}

		var resp confirmResponse
		err = s.Ask(ctx, oracle.Request{
			Task:         "confirm-boundaries",
			Instructions: confirmInstructions,
			Input:        string(input),
		}, validation.ConfirmBoundariesSchema, &resp)
		if err != nil {
			return nil, fmt.Errorf("confirming boundaries: %w", err)
		}

		for _, c := range resp.Confirmed {
			line := c.Line
			if c.CorrectedLine >= 1 && c.CorrectedLine <= tx.LineCount() {
				line = c.CorrectedLine
			}
			if line >= 1 && line <= tx.LineCount() {
				confirmed[line] = true
			}
		}
	}

	if len(confirmed) == 0 {
		// The oracle rejecting everything is almost always over-filtering.
		// Keep all candidates rather than lose the transcript.
		slog.Warn("no boundaries confirmed, falling back to all candidates",
			"file", tx.FileID(), "candidates", len(cands))
		return FromCandidates(cands), nil
	}

	lines := make([]int, 0, len(confirmed))
	for line := range confirmed {
		lines = append(lines, line)
	}
	sort.Ints(lines)

	out := make([]Boundary, 0, len(lines))
	for _, line := range lines {
		out = append(out, Boundary{Line: line, Prompt: promptByLine[line]})
	}
	return out, nil
}

// batch splits candidates into groups whose serialized windows fit the
// token budget. Every batch holds at least one candidate.
func (v Validator) batch(tx *transcript.Transcript, cands []Candidate, budget int) [][]candidateWindow {
	var batches [][]candidateWindow
	var current []candidateWindow
	used := 0

	for _, c := range cands {
		prev, cur, next := tx.Window(c.Line)
		w := candidateWindow{
			Line:    c.Line,
			Prev:    truncate(prev, contextChars),
			Current: truncate(cur, contextChars),
			Next:    truncate(next, contextChars),
		}
		cost := tokens.Estimate(w.Prev + w.Current + w.Next)
		if len(current) > 0 && used+cost > budget {
			batches = append(batches, current)
			current = nil
			used = 0
		}
		current = append(current, w)
		used += cost
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
