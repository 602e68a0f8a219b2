// Package config loads and validates the YAML run spec that drives a
// batch run.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/turncast/turncast/internal/backoff"
	"github.com/turncast/turncast/internal/rules"
	"github.com/turncast/turncast/internal/validation"
)

// Defaults applied to fields the spec leaves out.
const (
	DefaultMaxConcurrent  = 5
	DefaultMaxInputTokens = 100000
	DefaultAPIKeyEnv      = "ORACLE_API_KEY"
	DefaultBaseURL        = "https://api.openai.com/v1"
)

// RunSpec is the on-disk YAML description of a batch run.
type RunSpec struct {
	Name       string         `yaml:"name"`
	InputDir   string         `yaml:"input_dir"`
	OutputDir  string         `yaml:"output_dir"`
	Models     []string       `yaml:"models"`
	JudgeModel string         `yaml:"judge_model"`
	Limits     LimitsSpec     `yaml:"limits"`
	Thresholds ThresholdsSpec `yaml:"thresholds"`
	Retry      RetrySpec      `yaml:"retry"`
	Oracle     OracleSpec     `yaml:"oracle"`
	Verify     VerifySpec     `yaml:"verify"`
}

type LimitsSpec struct {
	MaxConcurrent  int `yaml:"max_concurrent"`
	MaxInputTokens int `yaml:"max_input_tokens"`
}

type ThresholdsSpec struct {
	TurnSimilarity float64 `yaml:"turn_similarity"`
	Reconstruction float64 `yaml:"reconstruction"`
}

type RetrySpec struct {
	MaxAttempts   int `yaml:"max_attempts"`
	BaseDelayMs   int `yaml:"base_delay_ms"`
	JitterPercent int `yaml:"jitter_percent"`
}

type OracleSpec struct {
	BaseURL          string  `yaml:"base_url"`
	APIKeyEnv        string  `yaml:"api_key_env"`
	Temperature      float64 `yaml:"temperature"`
	ArchiveResponses bool    `yaml:"archive_responses"`
}

type VerifySpec struct {
	MaxPasses int `yaml:"max_passes"`
}

// LoadRunSpec reads, schema-validates, and defaults a run spec.
func LoadRunSpec(path string) (*RunSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run spec: %w", err)
	}

	if errs := validation.ValidateRunSpecBytes(data); len(errs) > 0 {
		return nil, fmt.Errorf("invalid run spec %s:\n  %s", path, strings.Join(errs, "\n  "))
	}

	var spec RunSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing run spec: %w", err)
	}

	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run spec %s: %w", path, err)
	}
	return &spec, nil
}

// ApplyDefaults fills in every optional field.
func (s *RunSpec) ApplyDefaults() {
	if s.Limits.MaxConcurrent <= 0 {
		s.Limits.MaxConcurrent = DefaultMaxConcurrent
	}
	if s.Limits.MaxInputTokens == 0 {
		s.Limits.MaxInputTokens = DefaultMaxInputTokens
	}
	defaults := rules.DefaultThresholds()
	if s.Thresholds.TurnSimilarity == 0 {
		s.Thresholds.TurnSimilarity = defaults.TurnSimilarity
	}
	if s.Thresholds.Reconstruction == 0 {
		s.Thresholds.Reconstruction = defaults.Reconstruction
	}
	policy := backoff.DefaultPolicy()
	if s.Retry.MaxAttempts <= 0 {
		s.Retry.MaxAttempts = policy.MaxAttempts
	}
	if s.Retry.BaseDelayMs <= 0 {
		s.Retry.BaseDelayMs = int(policy.BaseDelay / time.Millisecond)
	}
	if s.Retry.JitterPercent <= 0 {
		s.Retry.JitterPercent = int(policy.JitterPercent)
	}
	if s.Oracle.BaseURL == "" {
		s.Oracle.BaseURL = DefaultBaseURL
	}
	if s.Oracle.APIKeyEnv == "" {
		s.Oracle.APIKeyEnv = DefaultAPIKeyEnv
	}
	if s.Verify.MaxPasses <= 0 {
		s.Verify.MaxPasses = 2
	}
}

// Validate checks the semantic constraints the schema cannot express.
func (s *RunSpec) Validate() error {
	if s.InputDir == "" {
		return fmt.Errorf("input_dir is required")
	}
	if s.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if len(s.Models) < 2 {
		return fmt.Errorf("at least 2 models are required for comparison, got %d", len(s.Models))
	}
	seen := make(map[string]bool, len(s.Models))
	for _, m := range s.Models {
		if m == "" {
			return fmt.Errorf("model names must be non-empty")
		}
		if seen[m] {
			return fmt.Errorf("duplicate model %q", m)
		}
		seen[m] = true
	}
	if s.JudgeModel == "" {
		return fmt.Errorf("judge_model is required")
	}
	return nil
}

// BackoffPolicy converts the retry spec into a policy value.
func (s *RunSpec) BackoffPolicy() backoff.Policy {
	return backoff.Policy{
		MaxAttempts:   s.Retry.MaxAttempts,
		BaseDelay:     time.Duration(s.Retry.BaseDelayMs) * time.Millisecond,
		MaxDelay:      backoff.DefaultPolicy().MaxDelay,
		JitterPercent: uint64(s.Retry.JitterPercent),
	}
}

// RuleThresholds converts the thresholds spec for the evaluator.
func (s *RunSpec) RuleThresholds() rules.Thresholds {
	return rules.Thresholds{
		TurnSimilarity: s.Thresholds.TurnSimilarity,
		Reconstruction: s.Thresholds.Reconstruction,
	}
}

// APIKey resolves the oracle API key from the configured environment
// variable.
func (s *RunSpec) APIKey() string {
	return os.Getenv(s.Oracle.APIKeyEnv)
}
