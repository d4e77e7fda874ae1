package regionbench

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	uuid "github.com/nu7hatch/gouuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/cheggaaa/pb.v1"
)

const (
	DefaultNumTests  = 100
	DefaultTablePath = "cram_js_runtime.tsv"
	DefaultPlotPath  = "benchmark_data_graph.png"
	DefaultDataDir   = "./test_data"
)

var DefaultLadder = []int{1000, 10000, 100000}

// Config is everything a run needs. It is built once, by NewHarness and its
// options, and not changed while the run is in progress.
type Config struct {
	Tests     int
	Files     []FilePair
	Coverage  map[string]Coverage
	Ladder    []int
	Reference ReferenceTool
	Candidate CandidateTool
	Timeout   time.Duration
	TablePath string
	PlotPath  string
	Names     ToolNames
}

// DefaultConfig compares samtools with the CRAM-JS reader on two human
// files and one E. coli file found in dataDir.
func DefaultConfig(dataDir string) Config {
	files, coverage := DefaultFiles(dataDir)
	return Config{
		Tests:    DefaultNumTests,
		Files:    files,
		Coverage: coverage,
		Ladder:   append([]int{}, DefaultLadder...),
		Reference: ReferenceTool{
			Path:    "samtools",
			Wrapper: []string{"/usr/bin/time", "-f", "%e"},
			Scratch: "samtools_buffer.txt",
		},
		Candidate: CandidateTool{Path: "node", Args: []string{"read_cram.js"}},
		TablePath: DefaultTablePath,
		PlotPath:  DefaultPlotPath,
		Names:     DefaultToolNames,
	}
}

func DefaultFiles(dataDir string) ([]FilePair, map[string]Coverage) {
	humanRef := filepath.Join(dataDir, "GRCh38_full_analysis_set_plus_decoy_hla.fa")
	ecoliRef := filepath.Join(dataDir, "DH10B_WithDup_FinalEdit_validated.fasta.txt")
	lowCoverage := filepath.Join(dataDir, "NA12878.alt_bwamem_GRCh38DH.20150718.CEU.low_coverage.cram")
	exome := filepath.Join(dataDir, "NA12878.alt_bwamem_GRCh38DH.20150826.CEU.exome.cram")
	ecoli := filepath.Join(dataDir, "MiSeq_Ecoli_DH10B_110721_PF.bam.cram")
	files := []FilePair{
		{Reference: humanRef, Target: lowCoverage, Domain: HumanDomain()},
		{Reference: humanRef, Target: exome, Domain: HumanDomain()},
		{
			Reference:   ecoliRef,
			Target:      ecoli,
			Domain:      SingleContigDomain("EcoliDH10B.fa", 4000000),
			FixedContig: "EcoliDH10B.fa",
		},
	}
	coverage := map[string]Coverage{
		lowCoverage: CoverageLow,
		exome:       CoverageExome,
		ecoli:       CoverageHigh,
	}
	return files, coverage
}

type Harness struct {
	config         Config
	rand           RandSource
	referenceTimer Timer
	candidateTimer Timer
	stdout, stderr io.Writer
	logLevel       logrus.Level
	log            *logrus.Entry
	progress       bool
	runID          string
	startAt        time.Time
	recorder       Recorder
	cells          []AggregateCell
}

type Option func(*Harness) error

func NewHarness(opts ...Option) (*Harness, error) {
	h := &Harness{
		config:         DefaultConfig(DefaultDataDir),
		rand:           NewRandSource(),
		referenceTimer: LeadingTokenTimer{},
		candidateTimer: StdoutTimer{},
		stdout:         os.Stdout,
		stderr:         os.Stderr,
		logLevel:       logrus.InfoLevel,
		startAt:        time.Now(),
	}
	for _, o := range opts {
		err := o(h)
		if err != nil {
			return nil, err
		}
	}
	if h.config.Tests <= 0 {
		return nil, fmt.Errorf("%d is invalid number of tests", h.config.Tests)
	}
	if len(h.config.Files) == 0 {
		return nil, ErrNoFiles
	}
	if err := validateLadder(h.config.Ladder); err != nil {
		return nil, err
	}
	if h.config.Reference.Path == "" || h.config.Candidate.Path == "" {
		return nil, errors.New("both tool commands must be set")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, errors.Wrap(err, "generating run id")
	}
	h.runID = id.String()
	logger := logrus.New()
	logger.Out = h.stderr
	logger.SetLevel(h.logLevel)
	h.log = logger.WithField("run", h.runID)
	return h, nil
}

func WithConfig(c Config) Option {
	return func(h *Harness) error {
		h.config = c
		return nil
	}
}

func WithTests(n int) Option {
	return func(h *Harness) error {
		h.config.Tests = n
		return nil
	}
}

// WithFiles replaces the benchmarked files and their coverage classes.
func WithFiles(files []FilePair, coverage map[string]Coverage) Option {
	return func(h *Harness) error {
		h.config.Files = files
		h.config.Coverage = coverage
		return nil
	}
}

func WithLadder(ladder ...int) Option {
	return func(h *Harness) error {
		h.config.Ladder = ladder
		return nil
	}
}

func WithReferenceTool(t ReferenceTool) Option {
	return func(h *Harness) error {
		h.config.Reference = t
		return nil
	}
}

func WithCandidateTool(t CandidateTool) Option {
	return func(h *Harness) error {
		h.config.Candidate = t
		return nil
	}
}

func WithTimeout(d time.Duration) Option {
	return func(h *Harness) error {
		if d < 0 {
			return fmt.Errorf("invalid timeout %v", d)
		}
		h.config.Timeout = d
		return nil
	}
}

// WithOutputs sets where the raw table and the chart are written. An empty
// path skips that output.
func WithOutputs(tablePath, plotPath string) Option {
	return func(h *Harness) error {
		h.config.TablePath = tablePath
		h.config.PlotPath = plotPath
		return nil
	}
}

func WithRandSource(src RandSource) Option {
	return func(h *Harness) error {
		if src == nil {
			return ErrValueCannotBeNil
		}
		h.rand = src
		return nil
	}
}

func WithTimers(reference, candidate Timer) Option {
	return func(h *Harness) error {
		if reference == nil || candidate == nil {
			return ErrValueCannotBeNil
		}
		h.referenceTimer = reference
		h.candidateTimer = candidate
		return nil
	}
}

func WithStdout(w io.Writer) Option {
	return func(h *Harness) error {
		if w == nil {
			return ErrValueCannotBeNil
		}
		h.stdout = w
		return nil
	}
}

func WithStderr(w io.Writer) Option {
	return func(h *Harness) error {
		if w == nil {
			return ErrValueCannotBeNil
		}
		h.stderr = w
		return nil
	}
}

func WithLogLevel(level logrus.Level) Option {
	return func(h *Harness) error {
		h.logLevel = level
		return nil
	}
}

func WithProgressBar() Option {
	return func(h *Harness) error {
		h.progress = true
		return nil
	}
}

func WithInputsFromArgs(args []string) Option {
	return func(h *Harness) error {
		fset := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
		fset.SetOutput(h.stderr)
		c := &h.config
		dataDir := fset.String("data", "", "directory holding the default reference and CRAM files")
		fset.IntVar(&c.Tests, "n", c.Tests, "number of random start positions per file")
		fset.StringVar(&c.TablePath, "o", c.TablePath, "raw results table (TSV), empty to skip")
		fset.StringVar(&c.PlotPath, "plot", c.PlotPath, "chart image (PNG), empty to skip")
		fset.StringVar(&c.Reference.Path, "samtools", c.Reference.Path, "samtools executable")
		wrapper := fset.String("wrapper", strings.Join(c.Reference.Wrapper, " "), "command reporting samtools elapsed seconds first, empty for none")
		fset.StringVar(&c.Reference.Scratch, "scratch", c.Reference.Scratch, "file samtools writes its reads to")
		candidate := fset.String("candidate", strings.Join(append([]string{c.Candidate.Path}, c.Candidate.Args...), " "), "candidate reader command")
		fset.DurationVar(&c.Timeout, "timeout", c.Timeout, "per invocation timeout, 0 for none")
		ladder := fset.String("ladder", joinInts(c.Ladder), "comma separated window sizes")
		faiPath := fset.String("fai", "", "FASTA index to take the multi-contig sampling domain from")
		level := fset.String("log", h.logLevel.String(), "log level: debug, info, warn, error")
		fset.BoolVar(&h.progress, "progress", h.progress, "show a progress bar")
		err := fset.Parse(args)
		if err != nil {
			return err
		}
		if fset.NArg() > 0 {
			return fmt.Errorf("unexpected arguments %q", fset.Args())
		}
		if c.Timeout < 0 {
			return fmt.Errorf("invalid timeout %v", c.Timeout)
		}
		if *dataDir != "" {
			c.Files, c.Coverage = DefaultFiles(*dataDir)
		}
		c.Reference.Wrapper = strings.Fields(*wrapper)
		fields := strings.Fields(*candidate)
		if len(fields) == 0 {
			return errors.New("candidate command cannot be empty")
		}
		c.Candidate = CandidateTool{Path: fields[0], Args: fields[1:]}
		c.Ladder, err = parseInts(*ladder)
		if err != nil {
			return errors.Wrap(err, "parsing -ladder")
		}
		h.logLevel, err = logrus.ParseLevel(*level)
		if err != nil {
			return err
		}
		if *faiPath != "" {
			domain, err := LoadDomain(*faiPath)
			if err != nil {
				return err
			}
			for i := range c.Files {
				if c.Files[i].FixedContig == "" {
					c.Files[i].Domain = domain
				}
			}
		}
		return nil
	}
}

func (h Harness) Config() Config {
	return h.config
}

func (h Harness) RunID() string {
	return h.runID
}

// Rows returns the results recorded so far, in run order.
func (h Harness) Rows() []ResultRow {
	return h.recorder.Rows()
}

func (h Harness) Cells() []AggregateCell {
	return h.cells
}

// Conditions samples windows for every file and builds their conditions.
// It fails before any tool is run if a file is not classified.
func (h *Harness) Conditions() ([]Condition, error) {
	sampler, err := NewSampler(h.rand, h.config.Files, h.config.Ladder)
	if err != nil {
		return nil, err
	}
	placements := sampler.Sample(h.config.Tests)
	return NewConditionBuilder(h.config.Coverage).BuildAll(placements)
}

// Run times both tools on every condition, in order, and then writes the
// table, the summary and the chart. The first failure stops the run and
// nothing is written.
func (h *Harness) Run(ctx context.Context) error {
	conditions, err := h.Conditions()
	if err != nil {
		return err
	}
	h.log.WithFields(logrus.Fields{
		"conditions": len(conditions),
		"files":      len(h.config.Files),
		"tests":      h.config.Tests,
	}).Info("Starting benchmark")

	err = h.execute(ctx, conditions)
	if err != nil {
		return err
	}
	return h.Report()
}

func (h *Harness) execute(ctx context.Context, conditions []Condition) error {
	var bar *pb.ProgressBar
	if h.progress {
		bar = pb.New(len(conditions))
		bar.Output = h.stdout
		bar.ShowTimeLeft = true
		bar.Start()
		defer bar.Finish()
	}
	executor := NewExecutor(h.config.Reference, h.config.Candidate, h.referenceTimer, h.candidateTimer, h.config.Timeout)
	for i, c := range conditions {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "benchmark interrupted")
		}
		h.log.WithFields(logrus.Fields{
			"file":   c.DisplayName(),
			"contig": c.ContigLabel(),
			"start":  c.Start(),
			"end":    c.End(),
		}).Debugf("Running with conditions: %s", c)
		ref, cand, err := executor.Execute(ctx, c)
		if err != nil {
			return errors.Wrapf(err, "condition %d of %d (%s)", i+1, len(conditions), c)
		}
		h.recorder.Record(c, ref, cand)
		if bar != nil {
			bar.Increment()
		}
	}
	return nil
}

// Report aggregates the recorded rows and writes every configured output.
func (h *Harness) Report() error {
	rows := h.recorder.Rows()
	h.cells = Aggregate(rows)
	if h.config.TablePath != "" {
		if err := WriteTableFile(h.config.TablePath, rows); err != nil {
			return err
		}
		h.log.WithField("path", h.config.TablePath).Info("Wrote results table")
	}
	WriteSummary(h.stdout, h.cells, h.config.Names)
	if h.config.PlotPath != "" {
		h.log.Info("Building figure")
		err := PlotFile(h.config.PlotPath, h.cells, PlotOptions{Names: h.config.Names})
		if err != nil {
			return err
		}
		h.log.WithField("path", h.config.PlotPath).Info("Wrote chart")
	}
	h.LogFStdOut("Benchmark is done\n")
	h.LogFStdOut("Time: %v Conditions: %d\n", time.Since(h.startAt), len(rows))
	return nil
}

func (h Harness) LogFStdOut(msg string, opts ...interface{}) {
	fmt.Fprintf(h.stdout, msg, opts...)
}

func joinInts(values []int) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = strconv.Itoa(v)
	}
	return strings.Join(s, ",")
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
