package regionbench

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrValueCannotBeNil = errors.New("value cannot be nil")
	ErrNoFiles          = errors.New("at least one file pair is required")
	ErrInvalidLadder    = errors.New("length ladder must contain positive window sizes")
	ErrNoCoverage       = errors.New("target file has no coverage classification")
	ErrExternalTool     = errors.New("external tool failed")
)

// ClassificationError reports a target file missing from the coverage map.
// Aggregation cannot group rows without it, so it is always fatal.
type ClassificationError struct {
	Path string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("%s: %q", ErrNoCoverage, e.Path)
}

func (e *ClassificationError) Is(target error) bool {
	return target == ErrNoCoverage
}

// ExternalToolError reports a tool invocation that exited non-zero, could not
// be started, or printed something other than an elapsed time.
type ExternalToolError struct {
	Tool     Tool
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", ErrExternalTool, e.Tool, strings.Join(e.Args, " "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += fmt.Sprintf(" (output %q)", out)
	}
	return msg
}

func (e *ExternalToolError) Is(target error) bool {
	return target == ErrExternalTool
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}
