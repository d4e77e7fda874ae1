package regionbench

import (
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/biogo/hts/fai"
	"github.com/pkg/errors"
)

// Sample is a query window on one contig. End is always greater than Start.
type Sample struct {
	SequenceID int
	Start, End int
}

func (s Sample) Length() int {
	return s.End - s.Start
}

func (s Sample) String() string {
	return fmt.Sprintf("%d:%d-%d", s.SequenceID, s.Start, s.End)
}

type Contig struct {
	ID     int
	Name   string
	Length int
}

// Domain is the set of contigs a target file can be queried on.
type Domain struct {
	Contigs []Contig
}

// humanContigLengths holds the rounded GRCh38 chromosome lengths used for
// sampling; ids 22 and 23 are chrX and chrY.
var humanContigLengths = []int{
	239000000, 239000000, 199000000, 189000000, 179000000, 169000000,
	149000000, 139000000, 129000000, 129000000, 129000000, 129000000,
	109000000, 99000000, 99000000, 89000000, 79000000, 69000000,
	59000000, 59000000, 39000000, 39000000, 149000000, 49000000,
}

func HumanDomain() Domain {
	d := Domain{}
	for id, length := range humanContigLengths {
		d.Contigs = append(d.Contigs, Contig{ID: id, Name: contigName(id), Length: length})
	}
	return d
}

func SingleContigDomain(name string, length int) Domain {
	return Domain{Contigs: []Contig{{ID: 0, Name: name, Length: length}}}
}

// LoadDomain reads a FASTA index (.fai) and returns its contigs numbered in
// file order, which is the numbering CRAM readers use for reference ids.
func LoadDomain(path string) (Domain, error) {
	f, err := os.Open(path)
	if err != nil {
		return Domain{}, errors.Wrapf(err, "opening FASTA index %s", path)
	}
	defer f.Close()
	idx, err := fai.ReadFrom(f)
	if err != nil {
		return Domain{}, errors.Wrapf(err, "reading FASTA index %s", path)
	}
	records := make([]fai.Record, 0, len(idx))
	for _, r := range idx {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Start < records[j].Start
	})
	d := Domain{}
	for id, r := range records {
		d.Contigs = append(d.Contigs, Contig{ID: id, Name: r.Name, Length: r.Length})
	}
	return d, nil
}

func (d Domain) validate() error {
	if len(d.Contigs) == 0 {
		return errors.New("domain has no contigs")
	}
	for _, c := range d.Contigs {
		if c.Length < 2 {
			return errors.Errorf("contig %d (%s) is too short to sample: %d", c.ID, c.Name, c.Length)
		}
	}
	return nil
}

// RandSource is the randomness the sampler draws from. *rand.Rand satisfies it.
type RandSource interface {
	Intn(n int) int
}

// NewRandSource returns a time-seeded source, so every run samples a
// different population.
func NewRandSource() RandSource {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Placement ties a sampled window to the file pair it was drawn for.
type Placement struct {
	Pair   FilePair
	Sample Sample
}

type Sampler struct {
	src    RandSource
	files  []FilePair
	ladder []int
}

func NewSampler(src RandSource, files []FilePair, ladder []int) (*Sampler, error) {
	if src == nil {
		return nil, ErrValueCannotBeNil
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if err := validateLadder(ladder); err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := f.Domain.validate(); err != nil {
			return nil, errors.Wrapf(err, "file %s", f.Target)
		}
	}
	return &Sampler{src: src, files: files, ladder: ladder}, nil
}

// Sample draws n start positions per file and expands each one over the
// length ladder. Ends are not clamped to the contig length.
func (s *Sampler) Sample(n int) []Placement {
	placements := make([]Placement, 0, n*len(s.files)*len(s.ladder))
	for i := 0; i < n; i++ {
		for _, f := range s.files {
			contig := s.pickContig(f.Domain)
			start := 1 + s.src.Intn(contig.Length-1)
			for _, size := range s.ladder {
				placements = append(placements, Placement{
					Pair: f,
					Sample: Sample{
						SequenceID: contig.ID,
						Start:      start,
						End:        start + size,
					},
				})
			}
		}
	}
	return placements
}

func (s *Sampler) pickContig(d Domain) Contig {
	if len(d.Contigs) == 1 {
		return d.Contigs[0]
	}
	return d.Contigs[s.src.Intn(len(d.Contigs))]
}

func validateLadder(ladder []int) error {
	if len(ladder) == 0 {
		return ErrInvalidLadder
	}
	seen := map[int]bool{}
	for _, size := range ladder {
		if size <= 0 {
			return errors.Wrapf(ErrInvalidLadder, "size %d", size)
		}
		if seen[size] {
			return errors.Wrapf(ErrInvalidLadder, "duplicate size %d", size)
		}
		seen[size] = true
	}
	return nil
}
