package regionbench

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Measurement is the elapsed time one tool reported for one condition.
type Measurement struct {
	Tool    Tool
	Elapsed decimal.Decimal
}

// ReferenceTool is samtools view, optionally run under a wrapper such as
// "/usr/bin/time -f %e" that reports the elapsed seconds first.
type ReferenceTool struct {
	Path    string
	Wrapper []string
	Scratch string
}

func (t ReferenceTool) Command(c Condition) Command {
	args := []string{
		"view",
		"-o", t.Scratch,
		"-t", c.ReferencePath(),
		c.TargetPath(),
		c.ContigLabel() + ":" + strconv.Itoa(c.Start()) + "-" + strconv.Itoa(c.End()),
	}
	if len(t.Wrapper) == 0 {
		return Command{Tool: ToolReference, Path: t.Path, Args: args}
	}
	wrapped := append([]string{}, t.Wrapper[1:]...)
	wrapped = append(wrapped, t.Path)
	return Command{Tool: ToolReference, Path: t.Wrapper[0], Args: append(wrapped, args...)}
}

// CandidateTool is the reader under test. Path plus Args is the program,
// for example "node read_cram.js".
type CandidateTool struct {
	Path string
	Args []string
}

func (t CandidateTool) Command(c Condition) Command {
	args := append([]string{}, t.Args...)
	args = append(args,
		"-r", c.ReferencePath(),
		"-c", c.TargetPath(),
		"--id", strconv.Itoa(c.SequenceID()),
		"-s", strconv.Itoa(c.Start()),
		"-e", strconv.Itoa(c.End()),
	)
	return Command{Tool: ToolCandidate, Path: t.Path, Args: args}
}

type Executor struct {
	reference      ReferenceTool
	candidate      CandidateTool
	referenceTimer Timer
	candidateTimer Timer
	timeout        time.Duration
}

func NewExecutor(ref ReferenceTool, cand CandidateTool, refTimer, candTimer Timer, timeout time.Duration) *Executor {
	return &Executor{
		reference:      ref,
		candidate:      cand,
		referenceTimer: refTimer,
		candidateTimer: candTimer,
		timeout:        timeout,
	}
}

// Execute times the reference tool and then the candidate on the same
// window. The candidate is not run if the reference fails.
func (e *Executor) Execute(ctx context.Context, c Condition) (Measurement, Measurement, error) {
	ref, err := e.time(ctx, e.referenceTimer, e.reference.Command(c))
	if err != nil {
		return Measurement{}, Measurement{}, err
	}
	cand, err := e.time(ctx, e.candidateTimer, e.candidate.Command(c))
	if err != nil {
		return Measurement{}, Measurement{}, err
	}
	return Measurement{Tool: ToolReference, Elapsed: ref}, Measurement{Tool: ToolCandidate, Elapsed: cand}, nil
}

func (e *Executor) time(ctx context.Context, timer Timer, cmd Command) (decimal.Decimal, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return timer.Time(ctx, cmd)
}
