package regionbench_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/thiagonache/regionbench"
)

// fakeTimer returns a fixed elapsed time and fails on call number failAt.
type fakeTimer struct {
	elapsed string
	failAt  int
	calls   int
	cmds    []regionbench.Command
}

func (f *fakeTimer) Time(ctx context.Context, cmd regionbench.Command) (decimal.Decimal, error) {
	f.calls++
	f.cmds = append(f.cmds, cmd)
	if f.calls == f.failAt {
		return decimal.Decimal{}, &regionbench.ExternalToolError{
			Tool: cmd.Tool, ExitCode: 1, Err: errors.New("exit status 1"),
		}
	}
	return decimal.RequireFromString(f.elapsed), nil
}

func testCondition(t *testing.T) regionbench.Condition {
	t.Helper()
	target := newTarget(t, "low.cram", 1024)
	builder := regionbench.NewConditionBuilder(map[string]regionbench.Coverage{target: regionbench.CoverageLow})
	pair := regionbench.FilePair{Reference: "ref.fa", Target: target, Domain: regionbench.HumanDomain()}
	c, err := builder.Build(pair, regionbench.Sample{SequenceID: 4, Start: 1500, End: 2500})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestReferenceToolCommandWrapsSamtoolsView(t *testing.T) {
	t.Parallel()
	c := testCondition(t)
	tool := regionbench.ReferenceTool{
		Path:    "samtools",
		Wrapper: []string{"/usr/bin/time", "-f", "%e"},
		Scratch: "samtools_buffer.txt",
	}
	got := tool.Command(c)
	want := regionbench.Command{
		Tool: regionbench.ToolReference,
		Path: "/usr/bin/time",
		Args: []string{
			"-f", "%e", "samtools", "view",
			"-o", "samtools_buffer.txt",
			"-t", "ref.fa",
			c.TargetPath(),
			"chr5:1500-2500",
		},
	}
	if !cmp.Equal(want, got) {
		t.Error(cmp.Diff(want, got))
	}
}

func TestReferenceToolCommandWithoutWrapperRunsSamtoolsDirectly(t *testing.T) {
	t.Parallel()
	c := testCondition(t)
	got := regionbench.ReferenceTool{Path: "samtools", Scratch: "out.txt"}.Command(c)
	if got.Path != "samtools" || got.Args[0] != "view" {
		t.Errorf("want samtools view, got %s %v", got.Path, got.Args)
	}
}

func TestCandidateToolCommandPassesNumericSequenceID(t *testing.T) {
	t.Parallel()
	c := testCondition(t)
	got := regionbench.CandidateTool{Path: "node", Args: []string{"read_cram.js"}}.Command(c)
	want := regionbench.Command{
		Tool: regionbench.ToolCandidate,
		Path: "node",
		Args: []string{
			"read_cram.js",
			"-r", "ref.fa",
			"-c", c.TargetPath(),
			"--id", "4",
			"-s", "1500",
			"-e", "2500",
		},
	}
	if !cmp.Equal(want, got) {
		t.Error(cmp.Diff(want, got))
	}
}

func TestExecuteReturnsBothMeasurements(t *testing.T) {
	t.Parallel()
	ref := &fakeTimer{elapsed: "0.75"}
	cand := &fakeTimer{elapsed: "1.5"}
	e := regionbench.NewExecutor(regionbench.ReferenceTool{Path: "samtools"}, regionbench.CandidateTool{Path: "node"}, ref, cand, 0)
	r, c, err := e.Execute(context.Background(), testCondition(t))
	if err != nil {
		t.Fatal(err)
	}
	if r.Tool != regionbench.ToolReference || r.Elapsed.String() != "0.75" {
		t.Errorf("want reference 0.75, got %s %s", r.Tool, r.Elapsed)
	}
	if c.Tool != regionbench.ToolCandidate || c.Elapsed.String() != "1.5" {
		t.Errorf("want candidate 1.5, got %s %s", c.Tool, c.Elapsed)
	}
	if ref.cmds[0].Tool != regionbench.ToolReference || cand.cmds[0].Tool != regionbench.ToolCandidate {
		t.Error("want each timer to receive its own tool's command")
	}
}

func TestExecuteSkipsCandidateWhenReferenceFails(t *testing.T) {
	t.Parallel()
	ref := &fakeTimer{elapsed: "0.75", failAt: 1}
	cand := &fakeTimer{elapsed: "1.5"}
	e := regionbench.NewExecutor(regionbench.ReferenceTool{Path: "samtools"}, regionbench.CandidateTool{Path: "node"}, ref, cand, 0)
	_, _, err := e.Execute(context.Background(), testCondition(t))
	if !errors.Is(err, regionbench.ErrExternalTool) {
		t.Fatalf("want ErrExternalTool, got %v", err)
	}
	if cand.calls != 0 {
		t.Errorf("want candidate not invoked, got %d calls", cand.calls)
	}
}

func TestExecuteWithTimeoutStopsSlowTool(t *testing.T) {
	t.Parallel()
	e := regionbench.NewExecutor(
		regionbench.ReferenceTool{Path: "sh", Wrapper: []string{"sh", "-c", "exec sleep 5", "wrapper"}},
		regionbench.CandidateTool{Path: "true"},
		regionbench.LeadingTokenTimer{}, regionbench.StdoutTimer{},
		50*time.Millisecond,
	)
	_, _, err := e.Execute(context.Background(), testCondition(t))
	if !errors.Is(err, regionbench.ErrExternalTool) {
		t.Errorf("want ErrExternalTool for timed out tool, got %v", err)
	}
}

func TestExecuteWithTimeoutStopsToolForkedByWrapper(t *testing.T) {
	t.Parallel()
	e := regionbench.NewExecutor(
		regionbench.ReferenceTool{Path: "sh", Wrapper: []string{"sh", "-c", "sleep 3; true", "wrapper"}},
		regionbench.CandidateTool{Path: "true"},
		regionbench.LeadingTokenTimer{}, regionbench.StdoutTimer{},
		100*time.Millisecond,
	)
	start := time.Now()
	_, _, err := e.Execute(context.Background(), testCondition(t))
	elapsed := time.Since(start)
	if !errors.Is(err, regionbench.ErrExternalTool) {
		t.Errorf("want ErrExternalTool for timed out tool, got %v", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("want forked child killed at the deadline, waited %v", elapsed)
	}
}

func TestStdoutTimerWithTimeoutStopsForkedChild(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := regionbench.StdoutTimer{}.Time(ctx, regionbench.Command{
		Tool: regionbench.ToolCandidate,
		Path: "sh",
		Args: []string{"-c", "sleep 3; echo 1"},
	})
	if err == nil {
		t.Fatal("want error for timed out command")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("want forked child killed at the deadline, waited %v", elapsed)
	}
}
