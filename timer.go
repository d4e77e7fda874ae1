package regionbench

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Tool identifies which of the two compared readers produced a measurement.
type Tool string

const (
	ToolReference Tool = "reference"
	ToolCandidate Tool = "candidate"
)

// Command is a fully built tool invocation.
type Command struct {
	Tool Tool
	Path string
	Args []string
}

func (c Command) argv() []string {
	return append([]string{c.Path}, c.Args...)
}

// pipeGrace bounds how long a cancelled command may hold its output pipes
// open after the process group has been killed.
const pipeGrace = 500 * time.Millisecond

// build returns the command ready to run under ctx. Cancelling ctx kills the
// whole process group, so children forked by a wrapper die with it.
func (c Command) build(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	killProcessGroup(cmd)
	cmd.WaitDelay = pipeGrace
	return cmd
}

// Timer runs a command and returns the elapsed seconds the command reported
// about itself.
type Timer interface {
	Time(ctx context.Context, cmd Command) (decimal.Decimal, error)
}

// LeadingTokenTimer reads the first whitespace-delimited token of the
// combined stdout and stderr stream, which is where a time(1) style wrapper
// reports elapsed seconds.
type LeadingTokenTimer struct{}

func (LeadingTokenTimer) Time(ctx context.Context, cmd Command) (decimal.Decimal, error) {
	c := cmd.build(ctx)
	out, err := c.CombinedOutput()
	if err != nil {
		return decimal.Decimal{}, toolError(cmd, out, err)
	}
	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return decimal.Decimal{}, &ExternalToolError{
			Tool: cmd.Tool, Args: cmd.argv(), Err: errors.New("no output"),
		}
	}
	return parseElapsed(cmd, fields[0], out)
}

// StdoutTimer expects the command to print a single decimal number of
// seconds on stdout and nothing else.
type StdoutTimer struct{}

func (StdoutTimer) Time(ctx context.Context, cmd Command) (decimal.Decimal, error) {
	c := cmd.build(ctx)
	stderr := &bytes.Buffer{}
	c.Stderr = stderr
	out, err := c.Output()
	if err != nil {
		return decimal.Decimal{}, toolError(cmd, append(out, stderr.Bytes()...), err)
	}
	return parseElapsed(cmd, strings.TrimSpace(string(out)), out)
}

func parseElapsed(cmd Command, token string, out []byte) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Decimal{}, &ExternalToolError{
			Tool: cmd.Tool, Args: cmd.argv(), Output: string(out),
			Err: errors.Wrapf(err, "parsing elapsed time %q", token),
		}
	}
	if d.IsNegative() {
		return decimal.Decimal{}, &ExternalToolError{
			Tool: cmd.Tool, Args: cmd.argv(), Output: string(out),
			Err: errors.Errorf("negative elapsed time %s", token),
		}
	}
	return d, nil
}

func toolError(cmd Command, out []byte, err error) error {
	e := &ExternalToolError{Tool: cmd.Tool, Args: cmd.argv(), Output: string(out), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		e.ExitCode = exitErr.ExitCode()
	}
	return e
}
