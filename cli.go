package regionbench

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
)

// RunCLI runs a full benchmark configured from command line flags.
func RunCLI(args []string) error {
	h, err := NewHarness(WithInputsFromArgs(args))
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return h.Run(ctx)
}

// RunPlotCLI re-reads a results table, prints its summary to w and renders
// the chart, so figures can be redrawn without rerunning the tools.
func RunPlotCLI(w io.Writer, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s results.tsv chart.png", os.Args[0])
	}
	rows, err := ReadTableFile(args[0])
	if err != nil {
		return err
	}
	cells := Aggregate(rows)
	WriteSummary(w, cells, DefaultToolNames)
	return PlotFile(args[1], cells, PlotOptions{})
}
