// Package oracle is the LLM capability behind every pipeline stage. A
// Client answers free-form completion requests; a Session layers retries,
// JSON extraction, and schema validation on top of one.
package oracle

import (
	"context"
	"errors"
)

// Sentinel errors callers branch on.
var (
	// ErrTransient marks failures worth retrying: rate limits, timeouts,
	// temporary upstream errors.
	ErrTransient = errors.New("transient oracle error")

	// ErrMalformed marks a response that came back but could not be
	// parsed or failed schema validation.
	ErrMalformed = errors.New("malformed oracle response")
)

// Request is a single oracle query. Task names the pipeline stage issuing
// the query (learn-patterns, confirm-boundaries, classify-turn,
// verify-turns, judge) and is used for recording and mock scripting.
type Request struct {
	Task         string
	Instructions string
	Input        string
	Temperature  float64
}

// Client answers oracle requests against a specific model.
type Client interface {
	Complete(ctx context.Context, model string, req Request) (string, error)
}
