// Package wizard collects a run spec interactively for `turncast init`.
package wizard

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/turncast/turncast/internal/config"
)

// RunSetupWizard runs an interactive huh form to collect the fields of a
// run spec. Defaults are applied to everything the form does not cover.
func RunSetupWizard(in io.Reader, out io.Writer) (*config.RunSpec, error) {
	var (
		name          string
		inputDir      = "data/raw"
		outputDir     = "data/out"
		modelsRaw     string
		judgeModel    string
		maxConcurrent = strconv.Itoa(config.DefaultMaxConcurrent)
		maxTokens     = strconv.Itoa(config.DefaultMaxInputTokens)
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Run name").
				Placeholder("nightly-batch").
				Value(&name),
			huh.NewInput().
				Title("Input directory").
				Description("Directory containing the .txt transcripts").
				Value(&inputDir).
				Validate(required("input directory")),
			huh.NewInput().
				Title("Output directory").
				Description("Where records and buckets are written").
				Value(&outputDir).
				Validate(required("output directory")),
			huh.NewInput().
				Title("Models").
				Description("Comma-separated model IDs (at least two)").
				Placeholder("gpt-4o-mini, claude-haiku").
				Value(&modelsRaw).
				Validate(func(s string) error {
					if len(splitAndTrim(s)) < 2 {
						return fmt.Errorf("at least 2 models are required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Judge model").
				Placeholder("claude-sonnet").
				Value(&judgeModel).
				Validate(required("judge model")),
			huh.NewInput().
				Title("Max concurrent files").
				Value(&maxConcurrent).
				Validate(positiveInt("max concurrent")),
			huh.NewInput().
				Title("Max input tokens per file").
				Description("Larger files are skipped without oracle calls").
				Value(&maxTokens).
				Validate(positiveInt("max input tokens")),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	concurrent, _ := strconv.Atoi(strings.TrimSpace(maxConcurrent))
	tokens, _ := strconv.Atoi(strings.TrimSpace(maxTokens))

	spec := &config.RunSpec{
		Name:       strings.TrimSpace(name),
		InputDir:   strings.TrimSpace(inputDir),
		OutputDir:  strings.TrimSpace(outputDir),
		Models:     splitAndTrim(modelsRaw),
		JudgeModel: strings.TrimSpace(judgeModel),
	}
	spec.Limits.MaxConcurrent = concurrent
	spec.Limits.MaxInputTokens = tokens
	spec.ApplyDefaults()

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("wizard produced an invalid spec: %w", err)
	}
	return spec, nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func positiveInt(field string) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer", field)
		}
		return nil
	}
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
