package regionbench

import (
	"image/color"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// ToolNames are the display names of the two compared tools.
type ToolNames struct {
	Reference string
	Candidate string
}

var DefaultToolNames = ToolNames{Reference: "Samtools", Candidate: "CRAM-JS"}

var DefaultTitles = map[Coverage]string{
	CoverageLow:   "Human Low Coverage",
	CoverageExome: "Human Exome",
	CoverageHigh:  "E. Coli High Coverage",
}

var (
	candidateColor = color.RGBA{R: 135, G: 206, B: 235, A: 255}
	referenceColor = color.RGBA{R: 205, G: 92, B: 92, A: 255}
)

type PlotOptions struct {
	Names       ToolNames
	Titles      map[Coverage]string
	PanelWidth  vg.Length
	PanelHeight vg.Length
}

func (o PlotOptions) withDefaults() PlotOptions {
	if o.Names == (ToolNames{}) {
		o.Names = DefaultToolNames
	}
	if o.Titles == nil {
		o.Titles = DefaultTitles
	}
	if o.PanelWidth == 0 {
		o.PanelWidth = 5 * vg.Inch
	}
	if o.PanelHeight == 0 {
		o.PanelHeight = 5 * vg.Inch
	}
	return o
}

// Plot renders one bar chart panel per coverage class side by side and
// writes the figure to w as PNG.
func Plot(w io.Writer, cells []AggregateCell, opts PlotOptions) error {
	if len(cells) == 0 {
		return errors.New("no results to plot")
	}
	opts = opts.withDefaults()
	classes := Coverages(cells)
	plots := make([]*plot.Plot, 0, len(classes))
	for _, class := range classes {
		p, err := panel(class, cellsFor(cells, class), opts)
		if err != nil {
			return errors.Wrapf(err, "plotting %s", class)
		}
		plots = append(plots, p)
	}

	img := vgimg.New(opts.PanelWidth*vg.Length(len(plots)), opts.PanelHeight)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(plots),
		PadX:      vg.Millimeter * 8,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align([][]*plot.Plot{plots}, tiles, dc)
	for i, p := range plots {
		p.Draw(canvases[0][i])
	}
	_, err := vgimg.PngCanvas{Canvas: img}.WriteTo(w)
	return err
}

func PlotFile(path string, cells []AggregateCell, opts PlotOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Plot(f, cells, opts); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}

func cellsFor(cells []AggregateCell, class Coverage) []AggregateCell {
	var out []AggregateCell
	for _, c := range cells {
		if c.Coverage == class {
			out = append(out, c)
		}
	}
	return out
}

const barHalfWidth = 0.17

func panel(class Coverage, cells []AggregateCell, opts PlotOptions) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = string(class)
	if title, ok := opts.Titles[class]; ok {
		p.Title.Text = title
	}
	p.X.Label.Text = "Interval Length (# of bases)"
	p.Y.Label.Text = "Runtime (seconds)"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	floor, ceiling := yBounds(cells)
	names := make([]string, len(cells))
	for i, c := range cells {
		names[i] = strconv.Itoa(c.IntervalLength)
	}

	series := []struct {
		tool   Tool
		name   string
		color  color.Color
		center float64
	}{
		{ToolCandidate, opts.Names.Candidate, candidateColor, -barHalfWidth},
		{ToolReference, opts.Names.Reference, referenceColor, barHalfWidth},
	}
	for _, s := range series {
		bars := &meanBars{
			offset: s.center,
			color:  s.color,
			floor:  floor,
			line:   draw.LineStyle{Color: color.Black, Width: vg.Points(0.5)},
		}
		points := errorPoints{
			XYs:     make(plotter.XYs, len(cells)),
			YErrors: make(plotter.YErrors, len(cells)),
		}
		labels := make([]string, len(cells))
		labelAt := make(plotter.XYs, len(cells))
		for i, c := range cells {
			sum := c.Tools[s.tool]
			mean := math.Max(sum.Mean, floor)
			bars.values = append(bars.values, mean)
			low, high := errorExtent(mean, sum.StdDev, floor)
			x := float64(i) + s.center
			points.XYs[i] = plotter.XY{X: x, Y: mean}
			points.YErrors[i].Low = low
			points.YErrors[i].High = high
			labelAt[i] = plotter.XY{X: x, Y: mean + high}
			labels[i] = strconv.FormatFloat(math.Round(sum.Mean*1000)/1000, 'f', -1, 64)
		}
		errBars, err := plotter.NewYErrorBars(points)
		if err != nil {
			return nil, err
		}
		valueLabels, err := plotter.NewLabels(plotter.XYLabels{XYs: labelAt, Labels: labels})
		if err != nil {
			return nil, err
		}
		for i := range valueLabels.TextStyle {
			valueLabels.TextStyle[i].XAlign = text.XCenter
			valueLabels.TextStyle[i].YAlign = text.YBottom
		}
		valueLabels.Offset = vg.Point{Y: vg.Points(3)}
		p.Add(bars, errBars, valueLabels)
		p.Legend.Add(s.name, bars)
	}
	p.NominalX(names...)
	p.X.Min = -0.5
	p.X.Max = float64(len(cells)) - 0.5
	p.Y.Min = floor
	p.Y.Max = ceiling
	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

// yBounds picks a power-of-ten floor under the smallest bar and leaves
// headroom above the tallest error bar for the value labels.
func yBounds(cells []AggregateCell) (float64, float64) {
	lo, hi := math.Inf(1), 0.0
	for _, c := range cells {
		for _, sum := range c.Tools {
			if sum.Mean > 0 {
				lo = math.Min(lo, sum.Mean)
			}
			top := sum.Mean
			if !math.IsNaN(sum.StdDev) {
				top += sum.StdDev
			}
			hi = math.Max(hi, top)
		}
	}
	if math.IsInf(lo, 1) {
		lo = 1e-3
	}
	floor := math.Pow(10, math.Floor(math.Log10(lo))-1)
	if hi <= floor {
		hi = floor * 10
	}
	return floor, hi * 4
}

// errorExtent returns how far the error bar reaches below and above mean,
// keeping the lower end above floor so it stays on the log axis.
func errorExtent(mean, stddev, floor float64) (float64, float64) {
	if math.IsNaN(stddev) || stddev <= 0 {
		return 0, 0
	}
	low := stddev
	if mean-low < floor {
		low = mean - floor
	}
	return low, stddev
}

type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// meanBars draws vertical bars from a positive floor so they can sit on a
// log scaled axis, which plotter.BarChart cannot do since it starts at zero.
type meanBars struct {
	values []float64
	offset float64
	floor  float64
	color  color.Color
	line   draw.LineStyle
}

func (b *meanBars) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	bottom := trY(b.floor)
	for i, v := range b.values {
		center := float64(i) + b.offset
		left := trX(center - barHalfWidth)
		right := trX(center + barHalfWidth)
		top := trY(v)
		pts := []vg.Point{
			{X: left, Y: bottom},
			{X: left, Y: top},
			{X: right, Y: top},
			{X: right, Y: bottom},
		}
		c.FillPolygon(b.color, c.ClipPolygonY(pts))
		c.StrokeLines(b.line, c.ClipLinesY(append(pts, pts[0]))...)
	}
}

func (b *meanBars) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin = b.offset - barHalfWidth
	xmax = float64(len(b.values)-1) + b.offset + barHalfWidth
	ymin, ymax = b.floor, b.floor
	for _, v := range b.values {
		ymax = math.Max(ymax, v)
	}
	return xmin, xmax, ymin, ymax
}

func (b *meanBars) Thumbnail(c *draw.Canvas) {
	pts := []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	}
	c.FillPolygon(b.color, c.ClipPolygonY(pts))
}
