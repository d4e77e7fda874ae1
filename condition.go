package regionbench

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Coverage is the sequencing depth class of a target file.
type Coverage string

const (
	CoverageLow   Coverage = "low"
	CoverageExome Coverage = "exome"
	CoverageHigh  Coverage = "high"
)

// CoverageOrder is the panel and summary order. Classes outside it sort
// after these, alphabetically.
var CoverageOrder = []Coverage{CoverageLow, CoverageExome, CoverageHigh}

func coverageRank(c Coverage) int {
	for i, known := range CoverageOrder {
		if c == known {
			return i
		}
	}
	return len(CoverageOrder)
}

func coverageLess(a, b Coverage) bool {
	ra, rb := coverageRank(a), coverageRank(b)
	if ra != rb {
		return ra < rb
	}
	return a < b
}

// FilePair is a target alignment file and the reference it was aligned to.
// FixedContig, when set, is the only contig label the reference tool
// accepts for this target.
type FilePair struct {
	Reference   string
	Target      string
	Domain      Domain
	FixedContig string
}

// ContigLabel returns the contig name the reference tool expects for id.
func ContigLabel(pair FilePair, id int) string {
	if pair.FixedContig != "" {
		return pair.FixedContig
	}
	for _, c := range pair.Domain.Contigs {
		if c.ID == id && c.Name != "" {
			return c.Name
		}
	}
	return contigName(id)
}

func contigName(id int) string {
	switch id {
	case 22:
		return "chrX"
	case 23:
		return "chrY"
	}
	return fmt.Sprintf("chr%d", id+1)
}

// Condition is one timed query: a window on a target file. It is never
// modified after Build returns it.
type Condition struct {
	referencePath string
	targetPath    string
	displayName   string
	fileSizeMiB   float64
	coverage      Coverage
	contigLabel   string
	sample        Sample
}

func (c Condition) ReferencePath() string { return c.referencePath }
func (c Condition) TargetPath() string    { return c.targetPath }
func (c Condition) DisplayName() string   { return c.displayName }
func (c Condition) FileSizeMiB() float64  { return c.fileSizeMiB }
func (c Condition) Coverage() Coverage    { return c.coverage }
func (c Condition) ContigLabel() string   { return c.contigLabel }
func (c Condition) SequenceID() int       { return c.sample.SequenceID }
func (c Condition) Start() int            { return c.sample.Start }
func (c Condition) End() int              { return c.sample.End }
func (c Condition) IntervalLength() int   { return c.sample.Length() }

func (c Condition) String() string {
	return fmt.Sprintf("name %s, interval %d:%d:%d", c.displayName, c.sample.SequenceID, c.sample.Start, c.sample.End)
}

const bytesPerMiB = 1024 * 1024

type ConditionBuilder struct {
	coverage map[string]Coverage
}

func NewConditionBuilder(coverage map[string]Coverage) *ConditionBuilder {
	return &ConditionBuilder{coverage: coverage}
}

// Build classifies the target by its exact path and measures its size.
func (b *ConditionBuilder) Build(pair FilePair, s Sample) (Condition, error) {
	class, ok := b.coverage[pair.Target]
	if !ok {
		return Condition{}, &ClassificationError{Path: pair.Target}
	}
	info, err := os.Stat(pair.Target)
	if err != nil {
		return Condition{}, errors.Wrapf(err, "measuring size of %s", pair.Target)
	}
	return Condition{
		referencePath: pair.Reference,
		targetPath:    pair.Target,
		displayName:   filepath.Base(pair.Target),
		fileSizeMiB:   float64(info.Size()) / bytesPerMiB,
		coverage:      class,
		contigLabel:   ContigLabel(pair, s.SequenceID),
		sample:        s,
	}, nil
}

// BuildAll builds every condition up front, so a bad classification stops
// the run before any tool is invoked.
func (b *ConditionBuilder) BuildAll(placements []Placement) ([]Condition, error) {
	conditions := make([]Condition, 0, len(placements))
	for _, p := range placements {
		c, err := b.Build(p.Pair, p.Sample)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, c)
	}
	return conditions, nil
}
