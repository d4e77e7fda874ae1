package regionbench

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var tableHeader = []string{
	"filename",
	"file_size_mib",
	"coverage_class",
	"interval_length",
	"reference_elapsed",
	"candidate_elapsed",
}

// WriteTable writes rows as tab-separated text with a header line.
func WriteTable(w io.Writer, rows []ResultRow) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(tableHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Filename,
			strconv.FormatFloat(r.FileSizeMiB, 'f', -1, 64),
			string(r.Coverage),
			strconv.Itoa(r.IntervalLength),
			r.Reference.String(),
			r.Candidate.String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteTableFile(path string, rows []ResultRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTable(f, rows); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}

// ReadTable parses a table written by WriteTable. Columns are matched by
// header name, so their order does not matter.
func ReadTable(r io.Reader) ([]ResultRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty table")
	}
	if err != nil {
		return nil, err
	}
	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}
	for _, name := range tableHeader {
		if _, ok := col[name]; !ok {
			return nil, errors.Errorf("table has no %q column", name)
		}
	}
	var rows []ResultRow
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		row, err := parseRow(record, col)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		rows = append(rows, row)
	}
}

func ReadTableFile(path string) ([]ResultRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := ReadTable(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return rows, nil
}

func parseRow(record []string, col map[string]int) (ResultRow, error) {
	size, err := strconv.ParseFloat(record[col["file_size_mib"]], 64)
	if err != nil {
		return ResultRow{}, err
	}
	length, err := strconv.Atoi(record[col["interval_length"]])
	if err != nil {
		return ResultRow{}, err
	}
	ref, err := decimal.NewFromString(record[col["reference_elapsed"]])
	if err != nil {
		return ResultRow{}, errors.Wrap(err, "reference_elapsed")
	}
	cand, err := decimal.NewFromString(record[col["candidate_elapsed"]])
	if err != nil {
		return ResultRow{}, errors.Wrap(err, "candidate_elapsed")
	}
	return ResultRow{
		Filename:       record[col["filename"]],
		FileSizeMiB:    size,
		Coverage:       Coverage(record[col["coverage_class"]]),
		IntervalLength: length,
		Reference:      ref,
		Candidate:      cand,
	}, nil
}

// WriteSummary prints the aggregate cells as a text table.
func WriteSummary(w io.Writer, cells []AggregateCell, names ToolNames) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{
		"Coverage", "Interval",
		names.Reference + " mean", names.Reference + " std",
		names.Candidate + " mean", names.Candidate + " std",
		"Ratio", "N",
	})
	for _, c := range cells {
		ref := c.Tools[ToolReference]
		cand := c.Tools[ToolCandidate]
		table.Append([]string{
			string(c.Coverage),
			strconv.Itoa(c.IntervalLength),
			formatSeconds(ref.Mean), formatSeconds(ref.StdDev),
			formatSeconds(cand.Mean), formatSeconds(cand.StdDev),
			formatRatio(Compare(c)),
			strconv.Itoa(ref.N),
		})
	}
	table.Render()
}

func formatSeconds(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.3f", v)
}

func formatRatio(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("%.2fx", v)
}
