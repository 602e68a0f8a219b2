package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/turncast/turncast/internal/wizard"
)

func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a run spec interactively",
		Long: `Create a run.yaml spec through a guided wizard.

If no directory is specified, the current directory is used. An existing
run.yaml is never overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: initCommandE,
	}
	return cmd
}

func initCommandE(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	specPath := filepath.Join(dir, "run.yaml")
	if _, err := os.Stat(specPath); err == nil {
		return fmt.Errorf("%s already exists", specPath)
	}

	spec, err := wizard.RunSetupWizard(cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to marshal run spec: %w", err)
	}
	if err := os.WriteFile(specPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", specPath, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", specPath)
	return nil
}
