package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess     = 0 // Batch completed, nothing failed outright
	ExitBatchFailed = 1 // Batch completed but one or more files failed
	ExitError       = 2 // Configuration or runtime error
)

// BatchFailureError indicates the batch ran to completion, but one or more
// files failed processing.
type BatchFailureError struct {
	Message string
}

func (e *BatchFailureError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Check error type to determine exit code
		var batchErr *BatchFailureError
		if errors.As(err, &batchErr) {
			os.Exit(ExitBatchFailed)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
