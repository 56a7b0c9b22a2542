package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // Run completed, gate (if any) passed
	ExitGateFailed = 1 // Run completed but the significance gate tripped
	ExitError      = 2 // Configuration, I/O, or runtime error
)

// GateError indicates that the study ran successfully but the p-value did
// not clear the --fail-above threshold.
type GateError struct {
	Message string
}

func (e *GateError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Check error type to determine exit code
		var gateErr *GateError
		if errors.As(err, &gateErr) {
			os.Exit(ExitGateFailed)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
