package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// LLMConfig configures the OpenAI-compatible chat backend.
type LLMConfig struct {
	// BaseURL points at any OpenAI-compatible endpoint.
	BaseURL string

	// APIKey authenticates against the endpoint. Some local gateways
	// accept any value.
	APIKey string
}

// LLMClient answers oracle requests through an OpenAI-compatible chat
// completion API. The model is chosen per call so one client serves every
// pipeline model and the judge.
type LLMClient struct {
	llm *openai.LLM
}

// NewLLMClient builds a client for the configured endpoint.
func NewLLMClient(cfg LLMConfig) (*LLMClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("oracle base URL required")
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		// langchaingo requires a token even for endpoints that ignore it.
		apiKey = "unused"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating oracle client: %w", err)
	}
	return &LLMClient{llm: llm}, nil
}

func (c *LLMClient) Complete(ctx context.Context, model string, req Request) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, req.Instructions),
		llms.TextParts(schema.ChatMessageTypeHuman, req.Input),
	}

	resp, err := c.llm.GenerateContent(ctx, messages,
		llms.WithModel(model),
		llms.WithTemperature(req.Temperature),
	)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrMalformed)
	}
	return resp.Choices[0].Content, nil
}

// classify maps transport failures onto the sentinel errors so callers can
// decide what to retry.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	transient := []string{
		"429", "rate limit", "timeout", "deadline exceeded",
		"503", "502", "service unavailable", "connection reset",
		"temporarily", "overloaded",
	}
	for _, marker := range transient {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
	}
	return fmt.Errorf("oracle completion: %w", err)
}
