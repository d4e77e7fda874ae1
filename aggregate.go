package regionbench

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

// ResultRow is one condition and both measurements, as persisted in the raw
// table.
type ResultRow struct {
	Filename       string
	FileSizeMiB    float64
	Coverage       Coverage
	IntervalLength int
	Reference      decimal.Decimal
	Candidate      decimal.Decimal
}

func NewResultRow(c Condition, ref, cand Measurement) ResultRow {
	return ResultRow{
		Filename:       c.DisplayName(),
		FileSizeMiB:    c.FileSizeMiB(),
		Coverage:       c.Coverage(),
		IntervalLength: c.IntervalLength(),
		Reference:      ref.Elapsed,
		Candidate:      cand.Elapsed,
	}
}

func (r ResultRow) elapsed(tool Tool) float64 {
	if tool == ToolCandidate {
		return r.Candidate.InexactFloat64()
	}
	return r.Reference.InexactFloat64()
}

// Recorder keeps rows in the order conditions were run.
type Recorder struct {
	rows []ResultRow
}

func (r *Recorder) Record(c Condition, ref, cand Measurement) {
	r.rows = append(r.rows, NewResultRow(c, ref, cand))
}

func (r *Recorder) Rows() []ResultRow {
	return r.rows
}

// Summary is the mean and sample standard deviation of one tool's elapsed
// times in seconds. StdDev is NaN when N < 2.
type Summary struct {
	Mean   float64
	StdDev float64
	N      int
}

type cellKey struct {
	coverage Coverage
	length   int
}

type AggregateCell struct {
	Coverage       Coverage
	IntervalLength int
	Tools          map[Tool]Summary
}

// Aggregate groups rows by coverage class and interval length. Cells come
// back in coverage order, then by ascending interval length.
func Aggregate(rows []ResultRow) []AggregateCell {
	groups := map[cellKey][]ResultRow{}
	for _, r := range rows {
		k := cellKey{coverage: r.Coverage, length: r.IntervalLength}
		groups[k] = append(groups[k], r)
	}
	cells := make([]AggregateCell, 0, len(groups))
	for k, group := range groups {
		cells = append(cells, AggregateCell{
			Coverage:       k.coverage,
			IntervalLength: k.length,
			Tools: map[Tool]Summary{
				ToolReference: summarize(group, ToolReference),
				ToolCandidate: summarize(group, ToolCandidate),
			},
		})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Coverage != cells[j].Coverage {
			return coverageLess(cells[i].Coverage, cells[j].Coverage)
		}
		return cells[i].IntervalLength < cells[j].IntervalLength
	})
	return cells
}

func summarize(rows []ResultRow, tool Tool) Summary {
	data := make(stats.Float64Data, 0, len(rows))
	for _, r := range rows {
		data = append(data, r.elapsed(tool))
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return Summary{Mean: math.NaN(), StdDev: math.NaN()}
	}
	s := Summary{Mean: mean, StdDev: math.NaN(), N: len(data)}
	if len(data) < 2 {
		return s
	}
	sd, err := stats.StandardDeviationSample(data)
	if err == nil {
		s.StdDev = sd
	}
	return s
}

// Compare returns how many times slower the candidate was than the
// reference on average. It is NaN if the reference mean is zero.
func Compare(cell AggregateCell) float64 {
	ref := cell.Tools[ToolReference].Mean
	if ref == 0 {
		return math.NaN()
	}
	return cell.Tools[ToolCandidate].Mean / ref
}

// Coverages lists the classes present in cells in panel order.
func Coverages(cells []AggregateCell) []Coverage {
	var out []Coverage
	seen := map[Coverage]bool{}
	for _, c := range cells {
		if !seen[c.Coverage] {
			seen[c.Coverage] = true
			out = append(out, c.Coverage)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return coverageLess(out[i], out[j])
	})
	return out
}
