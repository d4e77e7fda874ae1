package regionbench_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/thiagonache/regionbench"
)

// newTarget creates a file of size bytes standing in for a CRAM file.
func newTarget(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestContigLabelMapsTerminalIdsToSexChromosomes(t *testing.T) {
	t.Parallel()
	pair := regionbench.FilePair{Target: "human.cram"}
	tcs := map[int]string{
		0:  "chr1",
		9:  "chr10",
		21: "chr22",
		22: "chrX",
		23: "chrY",
	}
	for id, want := range tcs {
		got := regionbench.ContigLabel(pair, id)
		if want != got {
			t.Errorf("id %d: want %q, got %q", id, want, got)
		}
	}
}

func TestContigLabelForFixedContigFileIgnoresSequenceID(t *testing.T) {
	t.Parallel()
	pair := regionbench.FilePair{
		Target:      "MiSeq_Ecoli_DH10B_110721_PF.bam.cram",
		FixedContig: "EcoliDH10B.fa",
	}
	for _, id := range []int{0, 5, 22, 23} {
		got := regionbench.ContigLabel(pair, id)
		if got != "EcoliDH10B.fa" {
			t.Errorf("id %d: want EcoliDH10B.fa, got %q", id, got)
		}
	}
}

func TestContigLabelUsesDomainNamesWhenPresent(t *testing.T) {
	t.Parallel()
	d, err := regionbench.LoadDomain("testdata/ref.fa.fai")
	if err != nil {
		t.Fatal(err)
	}
	pair := regionbench.FilePair{Target: "x.cram", Domain: d}
	if got := regionbench.ContigLabel(pair, 2); got != "chrM" {
		t.Errorf("want chrM, got %q", got)
	}
}

func TestBuildComputesConditionFields(t *testing.T) {
	t.Parallel()
	target := newTarget(t, "sample.cram", 512*1024)
	pair := regionbench.FilePair{Reference: "ref.fa", Target: target, Domain: regionbench.HumanDomain()}
	builder := regionbench.NewConditionBuilder(map[string]regionbench.Coverage{target: regionbench.CoverageExome})
	c, err := builder.Build(pair, regionbench.Sample{SequenceID: 22, Start: 100, End: 10100})
	if err != nil {
		t.Fatal(err)
	}
	if c.FileSizeMiB() != 0.5 {
		t.Errorf("want 0.5 MiB, got %v", c.FileSizeMiB())
	}
	if c.Coverage() != regionbench.CoverageExome {
		t.Errorf("want exome coverage, got %q", c.Coverage())
	}
	if c.IntervalLength() != 10000 {
		t.Errorf("want interval length 10000, got %d", c.IntervalLength())
	}
	if c.DisplayName() != "sample.cram" {
		t.Errorf("want display name sample.cram, got %q", c.DisplayName())
	}
	if c.ContigLabel() != "chrX" {
		t.Errorf("want contig label chrX, got %q", c.ContigLabel())
	}
	if c.ReferencePath() != "ref.fa" || c.TargetPath() != target {
		t.Errorf("unexpected paths %q %q", c.ReferencePath(), c.TargetPath())
	}
}

func TestBuildWithUnclassifiedTargetReturnsClassificationError(t *testing.T) {
	t.Parallel()
	target := newTarget(t, "unknown.cram", 10)
	builder := regionbench.NewConditionBuilder(map[string]regionbench.Coverage{"other.cram": regionbench.CoverageLow})
	_, err := builder.Build(regionbench.FilePair{Target: target}, regionbench.Sample{Start: 1, End: 2})
	if !errors.Is(err, regionbench.ErrNoCoverage) {
		t.Fatalf("want ErrNoCoverage, got %v", err)
	}
	var ce *regionbench.ClassificationError
	if !errors.As(err, &ce) {
		t.Fatalf("want *ClassificationError, got %T", err)
	}
	if ce.Path != target {
		t.Errorf("want path %q, got %q", target, ce.Path)
	}
}

func TestBuildMatchesCoverageByExactPath(t *testing.T) {
	t.Parallel()
	target := newTarget(t, "a.cram", 10)
	builder := regionbench.NewConditionBuilder(map[string]regionbench.Coverage{
		filepath.Base(target): regionbench.CoverageLow,
	})
	_, err := builder.Build(regionbench.FilePair{Target: target}, regionbench.Sample{Start: 1, End: 2})
	if !errors.Is(err, regionbench.ErrNoCoverage) {
		t.Errorf("want ErrNoCoverage for base name only match, got %v", err)
	}
}

func TestBuildWithMissingTargetReturnsError(t *testing.T) {
	t.Parallel()
	target := filepath.Join(t.TempDir(), "missing.cram")
	builder := regionbench.NewConditionBuilder(map[string]regionbench.Coverage{target: regionbench.CoverageLow})
	_, err := builder.Build(regionbench.FilePair{Target: target}, regionbench.Sample{Start: 1, End: 2})
	if err == nil {
		t.Fatal("want error for missing target file")
	}
}
