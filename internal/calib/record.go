package calib

import (
	"github.com/mvakit/mvakit/internal/curve"
)

// Processor kind names used in calibration files and the processor registry.
const (
	KindLikelihood = "likelihood"
	KindNormalize  = "normalize"
)

// Record is one stage's calibration: everything a processor needs to be
// constructed. Records are built once by Load and never mutated.
type Record interface {
	// Kind returns the processor kind this record calibrates.
	Kind() string
	// Inputs returns the ordered input variable names, including the
	// category selector when categorized.
	Inputs() []string
}

// SigBkg is one variable's calibrated signal/background histogram pair.
// UseSpline selects the spline-based PDF representation for both histograms;
// otherwise both use direct binned lookup.
type SigBkg struct {
	UseSpline  bool
	Signal     *curve.Histogram
	Background *curve.Histogram
}

// Likelihood calibrates a likelihood processor: a flat, category-partitioned
// list of PDF pairs, the category slot index (-1 for none) and the prior
// bias folded into the signal accumulator.
type Likelihood struct {
	CategoryIdx int
	Bias        float64
	In          []string
	PDFs        []SigBkg
}

func (l *Likelihood) Kind() string     { return KindLikelihood }
func (l *Likelihood) Inputs() []string { return l.In }

// Normalize calibrates a normalization processor: a flat,
// category-partitioned list of equalization histograms and the category
// slot index (-1 for none).
type Normalize struct {
	CategoryIdx int
	In          []string
	Maps        []*curve.Histogram
}

func (n *Normalize) Kind() string     { return KindNormalize }
func (n *Normalize) Inputs() []string { return n.In }
