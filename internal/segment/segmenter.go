// Package segment turns confirmed boundaries into classified turns and
// verifies the result with a bounded correction loop.
package segment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/turncast/turncast/internal/boundary"
	"github.com/turncast/turncast/internal/models"
	"github.com/turncast/turncast/internal/oracle"
	"github.com/turncast/turncast/internal/transcript"
	"github.com/turncast/turncast/internal/validation"
)

// errorMarker flags spans carrying an explicit error line.
var errorMarker = regexp.MustCompile(`^\[Error:`)

const classifyInstructions = `You classify one span of a terminal transcript into a command and its
output. The span starts at a prompt line; the prompt prefix is given
separately. Strip the prompt from the first line and merge shell
continuation lines (trailing backslash, heredocs, quote continuations)
into a single logical command. Every remaining line of the span is output,
in order. Respond with JSON:
{"action_content": "...", "observation_lines": ["..."]}.`

type classifyResponse struct {
	ActionContent    string   `json:"action_content"`
	ObservationLines []string `json:"observation_lines"`
}

// Segmenter slices a transcript at its boundaries and classifies each span
// with one oracle query.
type Segmenter struct{}

// Segment produces the initial output and the ordered turns for the given
// boundaries. When a span's classification query fails after retries, the
// span degrades to a heuristic split (first line minus prompt is the
// command, the rest is output); the judge and similarity gates catch bad
// heuristic splits downstream.
func (g Segmenter) Segment(ctx context.Context, s *oracle.Session, tx *transcript.Transcript, bounds []boundary.Boundary) (string, []models.Turn, error) {
	if len(bounds) == 0 {
		return tx.Text(), nil, nil
	}

	initial := joinWithNewline(tx.Lines(1, bounds[0].Line))

	var turns []models.Turn
	for i, b := range bounds {
		end := tx.LineCount() + 1
		nextPrompt := ""
		if i+1 < len(bounds) {
			end = bounds[i+1].Line
			nextPrompt = bounds[i+1].Prompt
		}
		rawLines := tx.Lines(b.Line, end)

		turn, err := g.classify(ctx, s, b.Prompt, rawLines)
		if err != nil {
			if ctx.Err() != nil {
				return "", nil, fmt.Errorf("classifying span at line %d: %w", b.Line, err)
			}
			slog.Warn("turn classification failed, using heuristic split",
				"file", tx.FileID(), "line", b.Line, "error", err)
			turn = heuristicTurn(b.Prompt, rawLines)
		}

		// The observation deliberately overruns into the next prompt's
		// echo so outputs read the way the terminal showed them.
		if nextPrompt != "" {
			if turn.Observation.Content == "" {
				turn.Observation.Content = nextPrompt
			} else {
				turn.Observation.Content += "\n" + nextPrompt
			}
		}
		turns = append(turns, turn)
	}

	// A leading span with no command is preamble, not a turn.
	if len(turns) > 0 && turns[0].Action.Content == "" && len(turns[0].Observation.RawLines) > 0 {
		initial += joinWithNewline(turns[0].Observation.RawLines)
		turns = turns[1:]
	}

	// Trailing prompt-only spans classify to nothing at all; drop them.
	kept := turns[:0]
	for _, t := range turns {
		if t.IsEmpty() {
			continue
		}
		kept = append(kept, t)
	}
	turns = kept

	for i := range turns {
		turns[i].TurnID = i + 1
	}
	return initial, turns, nil
}

func (g Segmenter) classify(ctx context.Context, s *oracle.Session, prompt string, rawLines []string) (models.Turn, error) {
	input, err := json.Marshal(map[string]any{
		"prompt": prompt,
		"lines":  rawLines,
	})
	if err != nil {
		return models.Turn{}, fmt.Errorf("encoding span: %w", err)
	}

	var resp classifyResponse
	err = s.Ask(ctx, oracle.Request{
		Task:         "classify-turn",
		Instructions: classifyInstructions,
		Input:        string(input),
	}, validation.ClassifyTurnSchema, &resp)
	if err != nil {
		return models.Turn{}, err
	}

	return models.Turn{
		Prompt: prompt,
		Action: models.Action{Content: resp.ActionContent},
		Observation: models.Observation{
			Content:  strings.Join(resp.ObservationLines, "\n"),
			RawLines: rawLines,
		},
		Metadata: models.TurnMetadata{
			HasError:    spanHasError(rawLines),
			SegmentedAt: time.Now().UTC(),
		},
	}, nil
}

// heuristicTurn splits a span without the oracle: strip the prompt from
// the first line for the command, keep the remaining lines as output.
func heuristicTurn(prompt string, rawLines []string) models.Turn {
	action := ""
	if len(rawLines) > 0 {
		action = strings.TrimPrefix(rawLines[0], prompt)
	}
	rest := ""
	if len(rawLines) > 1 {
		rest = strings.Join(rawLines[1:], "\n")
	}
	return models.Turn{
		Prompt: prompt,
		Action: models.Action{Content: action},
		Observation: models.Observation{
			Content:  rest,
			RawLines: rawLines,
		},
		Metadata: models.TurnMetadata{
			HasError:    spanHasError(rawLines),
			SegmentedAt: time.Now().UTC(),
		},
	}
}

func spanHasError(lines []string) bool {
	for _, line := range lines {
		if errorMarker.MatchString(line) {
			return true
		}
	}
	return false
}

func joinWithNewline(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
