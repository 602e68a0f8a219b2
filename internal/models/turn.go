// Package models defines the data shapes shared across the pipeline:
// turns, per-model parse results, judgments, and evaluation verdicts.
package models

import "time"

// Action is the command text of a turn, with shell continuation lines
// already merged into a single logical command.
type Action struct {
	Content string `json:"content"`
}

// Observation is everything the terminal printed after a command, up to
// and including the echo of the next prompt.
type Observation struct {
	Content  string   `json:"content"`
	RawLines []string `json:"raw_lines,omitempty"`
}

// TurnMetadata carries per-turn diagnostics.
type TurnMetadata struct {
	HasError    bool      `json:"has_error"`
	SegmentedAt time.Time `json:"segmented_at,omitzero"`
}

// Turn is one command/output exchange. TurnID is 1-based and contiguous
// within a ParseResult.
type Turn struct {
	TurnID      int          `json:"turn_id"`
	Prompt      string       `json:"prompt,omitempty"`
	Action      Action       `json:"action"`
	Observation Observation  `json:"observation"`
	Metadata    TurnMetadata `json:"metadata,omitzero"`
}

// IsEmpty reports whether the turn has neither command nor output.
func (t Turn) IsEmpty() bool {
	return t.Action.Content == "" && t.Observation.Content == ""
}

// SimplifiedTurn is the canonical training shape of a turn: no prompts,
// no raw lines, no metadata.
type SimplifiedTurn struct {
	TurnID      int    `json:"turn_id"`
	Action      Action `json:"action"`
	Observation struct {
		Content string `json:"content"`
	} `json:"observation"`
}

// Simplify strips a turn down to its training shape.
func (t Turn) Simplify() SimplifiedTurn {
	var s SimplifiedTurn
	s.TurnID = t.TurnID
	s.Action = Action{Content: t.Action.Content}
	s.Observation.Content = t.Observation.Content
	return s
}
