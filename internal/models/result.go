package models

import (
	"fmt"
	"strings"
)

// ParseResult is the full output of one model's extraction pipeline for
// one transcript.
type ParseResult struct {
	ModelID         string   `json:"model"`
	FileID          string   `json:"file_id"`
	InitialOutput   string   `json:"initial_output"`
	Turns           []Turn   `json:"turns"`
	LearnedPatterns []string `json:"learned_patterns,omitempty"`
	Boundaries      []int    `json:"confirmed_boundaries,omitempty"`
}

func (r *ParseResult) TurnCount() int { return len(r.Turns) }

// Renumber rewrites turn ids to be contiguous starting at 1.
func (r *ParseResult) Renumber() {
	for i := range r.Turns {
		r.Turns[i].TurnID = i + 1
	}
}

// Validate checks the structural invariants: turn ids contiguous from 1.
func (r *ParseResult) Validate() error {
	for i, turn := range r.Turns {
		if turn.TurnID != i+1 {
			return fmt.Errorf("turn %d has id %d, want %d", i, turn.TurnID, i+1)
		}
	}
	return nil
}

// Reconstruct rebuilds the transcript text from the initial output and the
// ordered turn contents. On a perfect segmentation this round-trips the
// source text.
func (r *ParseResult) Reconstruct() string {
	var segments []string
	for _, turn := range r.Turns {
		if turn.Action.Content != "" {
			segments = append(segments, turn.Action.Content)
		}
		if turn.Observation.Content != "" {
			segments = append(segments, turn.Observation.Content)
		}
	}
	return r.InitialOutput + strings.Join(segments, "\n")
}

// SimplifiedRecord is the accepted-output record: the winner's extraction
// reduced to its training shape.
type SimplifiedRecord struct {
	InitialOutput string           `json:"initial_output"`
	Turns         []SimplifiedTurn `json:"turns"`
}

// Simplify produces the canonical training record for this result.
func (r *ParseResult) Simplify() SimplifiedRecord {
	turns := make([]SimplifiedTurn, 0, len(r.Turns))
	for _, turn := range r.Turns {
		turns = append(turns, turn.Simplify())
	}
	return SimplifiedRecord{
		InitialOutput: r.InitialOutput,
		Turns:         turns,
	}
}
