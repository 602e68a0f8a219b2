package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turncast/turncast/internal/config"
	"github.com/turncast/turncast/internal/oracle"
	"github.com/turncast/turncast/internal/pipeline"
)

var (
	runVerbose        bool
	runArchive        bool
	runInputDir       string
	runOutputDir      string
	runJudgeModel     string
	runMaxConcurrent  int
	runMaxInputTokens int
	runModelOverrides []string
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <run.yaml>",
		Short: "Run a batch extraction over a directory of transcripts",
		Long: `Run a batch extraction described by a run spec.

Every .txt file in the input directory is segmented once per configured
model, judged, gated by the rule evaluator, and routed into exactly one
outcome bucket under the output directory.`,
		Args: cobra.ExactArgs(1),
		RunE: runCommandE,
	}

	cmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Verbose output with per-model progress")
	cmd.Flags().BoolVar(&runArchive, "archive", false, "Archive raw oracle responses per file (overrides spec)")
	cmd.Flags().StringVar(&runInputDir, "input-dir", "", "Input directory (overrides spec)")
	cmd.Flags().StringVar(&runOutputDir, "output-dir", "", "Output directory (overrides spec)")
	cmd.Flags().StringVar(&runJudgeModel, "judge-model", "", "Judge model (overrides spec)")
	cmd.Flags().IntVar(&runMaxConcurrent, "max-concurrent", 0, "Max files processed concurrently (overrides spec)")
	cmd.Flags().IntVar(&runMaxInputTokens, "max-input-tokens", 0, "Max input tokens per file (overrides spec)")
	cmd.Flags().StringArrayVar(&runModelOverrides, "model", nil, "Model to use (overrides spec, can be repeated)")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	spec, err := config.LoadRunSpec(args[0])
	if err != nil {
		return err
	}

	// CLI flags override spec config
	if len(runModelOverrides) > 0 {
		spec.Models = runModelOverrides
	}
	if runJudgeModel != "" {
		spec.JudgeModel = runJudgeModel
	}
	if runInputDir != "" {
		spec.InputDir = runInputDir
	}
	if runOutputDir != "" {
		spec.OutputDir = runOutputDir
	}
	if runMaxConcurrent > 0 {
		spec.Limits.MaxConcurrent = runMaxConcurrent
	}
	if runMaxInputTokens > 0 {
		spec.Limits.MaxInputTokens = runMaxInputTokens
	}
	if runArchive {
		spec.Oracle.ArchiveResponses = true
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("invalid configuration after overrides: %w", err)
	}

	client, err := oracle.NewLLMClient(oracle.LLMConfig{
		BaseURL: spec.Oracle.BaseURL,
		APIKey:  spec.APIKey(),
	})
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(spec, client, pipeline.WithVerbose(runVerbose))
	out := cmd.OutOrStdout()

	runner.OnProgress(func(event pipeline.ProgressEvent) {
		switch event.EventType {
		case pipeline.EventBatchStart:
			fmt.Fprintf(out, "Processing %d file(s) with %d model(s), judge %s\n",
				event.TotalFiles, len(spec.Models), spec.JudgeModel)
		case pipeline.EventFileComplete:
			fmt.Fprintf(out, "[%d/%d] %s -> %s", event.FileNum, event.TotalFiles, event.FileID, event.Bucket)
			if event.Detail != "" {
				fmt.Fprintf(out, " (%s)", event.Detail)
			}
			fmt.Fprintln(out)
		case pipeline.EventModelComplete:
			if runVerbose {
				fmt.Fprintf(out, "    %s/%s: %s\n", event.FileID, event.Model, event.Detail)
			}
		}
	})

	summary, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}
	summary.Print(out)

	if summary.Failed > 0 {
		return &BatchFailureError{
			Message: fmt.Sprintf("%d of %d file(s) failed processing", summary.Failed, summary.TotalFiles),
		}
	}
	return nil
}
