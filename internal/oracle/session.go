package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/turncast/turncast/internal/backoff"
	"github.com/turncast/turncast/internal/validation"
)

// Session binds one model to a client, a retry policy, and an optional
// exchange recorder. Every pipeline stage talks to the oracle through a
// session.
type Session struct {
	Client   Client
	Model    string
	Policy   backoff.Policy
	Recorder *Recorder

	// Temperature is applied to every request that does not set its own.
	Temperature float64
}

// NewSession builds a session with the default retry policy.
func NewSession(client Client, model string) *Session {
	return &Session{
		Client: client,
		Model:  model,
		Policy: backoff.DefaultPolicy(),
	}
}

// Ask sends one request and decodes the JSON payload of the response into
// out after validating it against schema. Transient transport failures and
// malformed responses are retried per the session policy; any other error
// is terminal.
func (s *Session) Ask(ctx context.Context, req Request, schema *jsonschema.Schema, out any) error {
	if req.Temperature == 0 {
		req.Temperature = s.Temperature
	}
	return s.Policy.Retry(ctx, func(ctx context.Context) error {
		raw, err := s.Client.Complete(ctx, s.Model, req)
		if err != nil {
			if errors.Is(err, ErrTransient) {
				return backoff.Retryable(err)
			}
			return err
		}
		s.Recorder.Record(req.Task, s.Model, raw)

		if err := decodeResponse(raw, schema, out); err != nil {
			slog.Debug("malformed oracle response, retrying",
				"task", req.Task, "model", s.Model, "error", err)
			return backoff.Retryable(err)
		}
		return nil
	})
}

func decodeResponse(raw string, schema *jsonschema.Schema, out any) error {
	payload := ExtractJSON(raw)
	if payload == "" {
		return fmt.Errorf("%w: no JSON payload found", ErrMalformed)
	}

	var instance any
	if err := json.Unmarshal([]byte(payload), &instance); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if schema != nil {
		if errs := validation.Against(schema, instance); len(errs) > 0 {
			return fmt.Errorf("%w: %s", ErrMalformed, strings.Join(errs, "; "))
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("building decoder: %w", err)
	}
	if err := decoder.Decode(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// ExtractJSON pulls the JSON payload out of an oracle response. Models
// often wrap JSON in markdown fences or surround it with prose; this takes
// a fenced block when present, otherwise the outermost braces.
func ExtractJSON(raw string) string {
	if block, ok := fencedBlock(raw, "```json"); ok {
		return block
	}
	if block, ok := fencedBlock(raw, "```"); ok {
		return block
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return ""
	}
	return strings.TrimSpace(raw[start : end+1])
}

func fencedBlock(raw, fence string) (string, bool) {
	start := strings.Index(raw, fence)
	if start == -1 {
		return "", false
	}
	rest := raw[start+len(fence):]
	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}
