package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turncast/turncast/internal/validation"
)

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <run.yaml>",
		Short: "Validate a run spec",
		Long:  `Validate a run spec against its schema and report every violation.`,
		Args:  cobra.ExactArgs(1),
		RunE:  checkCommandE,
	}
	return cmd
}

func checkCommandE(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading run spec: %w", err)
	}

	errs := validation.ValidateRunSpecBytes(data)
	if len(errs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", path)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d problem(s)\n", path, len(errs))
	for _, e := range errs {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", e)
	}
	return fmt.Errorf("%s is not a valid run spec", path)
}
