package segment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/turncast/turncast/internal/boundary"
	"github.com/turncast/turncast/internal/models"
	"github.com/turncast/turncast/internal/oracle"
	"github.com/turncast/turncast/internal/transcript"
	"github.com/turncast/turncast/internal/validation"
)

// DefaultMaxPasses bounds the verification loop. Two passes catch nearly
// everything the verifier can fix; beyond that it tends to oscillate.
const DefaultMaxPasses = 2

const verifyInstructions = `You audit a segmented terminal transcript. For each turn decide whether it
is exactly one command/output exchange (is_single_turn), and whether it
describes content that does not appear in a terminal session at all
(is_hallucinated). Also report turns that are missing entirely, naming the
turn they should follow (after_turn_id 0 means before the first turn).
Respond with JSON:
{"turns": [{"turn_id": N, "is_single_turn": true, "is_hallucinated": false, "issue": "..."}],
 "missing": [{"after_turn_id": N, "reason": "..."}]}.`

type verifyResponse struct {
	Turns []struct {
		TurnID         int    `json:"turn_id"`
		IsSingleTurn   bool   `json:"is_single_turn"`
		IsHallucinated bool   `json:"is_hallucinated"`
		Issue          string `json:"issue"`
	} `json:"turns"`
	Missing []struct {
		AfterTurnID int    `json:"after_turn_id"`
		Reason      string `json:"reason"`
	} `json:"missing"`
}

// Report summarizes what the verifier changed.
type Report struct {
	Passes     int
	Dropped    int
	Split      int
	Recovered  int
	Unresolved []string
}

// Verifier reviews a segmentation and repairs what it can: hallucinated
// turns are dropped, merged turns re-segmented in place, and turns hiding
// in the preamble recovered. Content is never duplicated: every repair
// replaces the raw lines it was derived from.
type Verifier struct {
	MaxPasses int
	Learner   boundary.Learner
	Segmenter Segmenter
}

// Verify mutates result in place and reports the corrections. Issues still
// open after the last pass are reported, not auto-corrected.
func (v Verifier) Verify(ctx context.Context, s *oracle.Session, result *models.ParseResult) (Report, error) {
	maxPasses := v.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}

	var report Report
	for pass := 1; pass <= maxPasses; pass++ {
		if len(result.Turns) == 0 {
			break
		}
		report.Passes = pass

		resp, err := v.ask(ctx, s, result)
		if err != nil {
			return report, fmt.Errorf("verify pass %d: %w", pass, err)
		}

		clean := v.applyPass(ctx, s, result, resp, &report)
		if clean {
			break
		}
		result.Renumber()
	}
	return report, nil
}

func (v Verifier) ask(ctx context.Context, s *oracle.Session, result *models.ParseResult) (*verifyResponse, error) {
	input, err := json.Marshal(result.Simplify())
	if err != nil {
		return nil, fmt.Errorf("encoding turns: %w", err)
	}

	var resp verifyResponse
	err = s.Ask(ctx, oracle.Request{
		Task:         "verify-turns",
		Instructions: verifyInstructions,
		Input:        string(input),
	}, validation.VerifyTurnsSchema, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// applyPass rewrites result.Turns from one verify response. Returns true
// when the pass found nothing to change.
func (v Verifier) applyPass(ctx context.Context, s *oracle.Session, result *models.ParseResult, resp *verifyResponse, report *Report) bool {
	drop := make(map[int]bool)
	split := make(map[int][]models.Turn)

	for _, t := range resp.Turns {
		if t.IsHallucinated {
			drop[t.TurnID] = true
			continue
		}
		if t.IsSingleTurn {
			continue
		}
		v.splitTurn(ctx, s, result, t.TurnID, t.Issue, split, report)
	}

	// A turn reported missing after turn k usually means turn k (or the
	// preamble, for k=0) swallowed it. Recover by re-segmenting that raw
	// content rather than inventing new lines.
	var preamble []models.Turn
	for _, m := range resp.Missing {
		if m.AfterTurnID == 0 {
			preamble = v.recoverPreamble(ctx, s, result, m.Reason, report)
			continue
		}
		if drop[m.AfterTurnID] || split[m.AfterTurnID] != nil {
			continue
		}
		v.splitTurn(ctx, s, result, m.AfterTurnID, m.Reason, split, report)
	}

	if len(drop) == 0 && len(split) == 0 && len(preamble) == 0 {
		return true
	}

	var rebuilt []models.Turn
	rebuilt = append(rebuilt, preamble...)
	report.Recovered += len(preamble)
	for _, turn := range result.Turns {
		id := turn.TurnID
		switch {
		case drop[id]:
			report.Dropped++
		case split[id] != nil:
			rebuilt = append(rebuilt, split[id]...)
			report.Split++
		default:
			rebuilt = append(rebuilt, turn)
		}
	}
	result.Turns = rebuilt
	return false
}

// splitTurn re-segments one turn's raw span and records the replacement
// when it yields a strict improvement (two or more turns, no preamble).
func (v Verifier) splitTurn(ctx context.Context, s *oracle.Session, result *models.ParseResult, id int, why string, split map[int][]models.Turn, report *Report) {
	if split[id] != nil {
		return
	}
	turn, ok := findTurn(result.Turns, id)
	if !ok {
		return
	}
	initial, subTurns, ok := v.resegment(ctx, s, result.FileID, turn.Observation.RawLines)
	if !ok || initial != "" || len(subTurns) < 2 {
		report.Unresolved = append(report.Unresolved,
			fmt.Sprintf("turn %d: %s", id, orReason(why, "could not split turn")))
		return
	}
	split[id] = subTurns
}

// recoverPreamble re-segments the initial output when the verifier says a
// turn precedes turn 1. On success the recovered turns replace the tail of
// the preamble.
func (v Verifier) recoverPreamble(ctx context.Context, s *oracle.Session, result *models.ParseResult, why string, report *Report) []models.Turn {
	if result.InitialOutput == "" {
		report.Unresolved = append(report.Unresolved,
			fmt.Sprintf("before turn 1: %s", orReason(why, "no preamble to recover from")))
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(result.InitialOutput, "\n"), "\n")

	initial, subTurns, ok := v.resegment(ctx, s, result.FileID, lines)
	if !ok || len(subTurns) == 0 {
		report.Unresolved = append(report.Unresolved,
			fmt.Sprintf("before turn 1: %s", orReason(why, "could not recover missing turn")))
		return nil
	}
	result.InitialOutput = initial
	return subTurns
}

// resegment runs a focused learn/apply/segment cycle over a slice of raw
// lines.
func (v Verifier) resegment(ctx context.Context, s *oracle.Session, fileID string, rawLines []string) (string, []models.Turn, bool) {
	if len(rawLines) == 0 {
		return "", nil, false
	}
	sub := transcript.New(fileID, strings.Join(rawLines, "\n")+"\n")

	patterns, err := v.Learner.Learn(ctx, s, sub)
	if err != nil {
		slog.Debug("resegment pattern learning degraded", "file", fileID, "error", err)
	}
	cands := boundary.Apply(patterns, sub)
	if len(cands) == 0 {
		return "", nil, false
	}

	initial, turns, err := v.Segmenter.Segment(ctx, s, sub, boundary.FromCandidates(cands))
	if err != nil {
		return "", nil, false
	}
	return initial, turns, true
}

func findTurn(turns []models.Turn, id int) (models.Turn, bool) {
	for _, t := range turns {
		if t.TurnID == id {
			return t, true
		}
	}
	return models.Turn{}, false
}

func orReason(reason, fallback string) string {
	if reason != "" {
		return reason
	}
	return fallback
}
