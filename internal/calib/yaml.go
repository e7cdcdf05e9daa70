package calib

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mvakit/mvakit/internal/curve"
)

// fileRecord is the YAML schema of one calibration file.
type fileRecord struct {
	// Kind is one of: likelihood | normalize.
	Kind string `yaml:"kind"`

	// CategoryIndex is the input slot carrying the category selector.
	// Omitted or -1 means no categorization.
	CategoryIndex *int `yaml:"category_index"`

	// Bias is the likelihood processor's prior weight. Defaults to 1.
	Bias *float64 `yaml:"bias"`

	// Inputs are the ordered input variable names, including the category
	// selector when categorized.
	Inputs []string `yaml:"inputs"`

	// PDFs holds the signal/background pairs of a likelihood record, flat
	// and category-partitioned.
	PDFs []filePair `yaml:"pdfs"`

	// Maps holds the equalization histograms of a normalize record, flat
	// and category-partitioned.
	Maps []fileHist `yaml:"maps"`
}

// filePair is one signal/background histogram pair.
type filePair struct {
	// Spline selects the spline-based PDF representation for both
	// histograms of the pair.
	Spline     bool     `yaml:"spline"`
	Signal     fileHist `yaml:"signal"`
	Background fileHist `yaml:"background"`
}

// fileHist is one calibration histogram: either inline bin contents
// (including the underflow and overflow entries at the ends) over the range
// [min, max), or a Prometheus import reference.
type fileHist struct {
	Min    float64   `yaml:"min"`
	Max    float64   `yaml:"max"`
	Values []float64 `yaml:"values"`

	Prom *PromRef `yaml:"prom"`
}

// Load reads and validates the calibration file at path and returns the
// corresponding record.
func Load(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("calib: read %q: %w", path, err)
	}

	var fr fileRecord
	if err := yaml.Unmarshal(data, &fr); err != nil {
		return nil, fmt.Errorf("calib: parse %q: %w", path, err)
	}

	rec, err := fr.build()
	if err != nil {
		return nil, fmt.Errorf("calib: %q: %w", path, err)
	}
	return rec, nil
}

func (fr *fileRecord) build() (Record, error) {
	if len(fr.Inputs) == 0 {
		return nil, fmt.Errorf("inputs must not be empty")
	}

	catIdx := -1
	if fr.CategoryIndex != nil {
		catIdx = *fr.CategoryIndex
	}
	if catIdx >= len(fr.Inputs) {
		return nil, fmt.Errorf("category_index %d out of range for %d inputs", catIdx, len(fr.Inputs))
	}

	switch fr.Kind {
	case KindLikelihood:
		if len(fr.PDFs) == 0 {
			return nil, fmt.Errorf("likelihood record has no pdfs")
		}
		bias := 1.0
		if fr.Bias != nil {
			bias = *fr.Bias
		}
		rec := &Likelihood{
			CategoryIdx: catIdx,
			Bias:        bias,
			In:          append([]string(nil), fr.Inputs...),
		}
		for i, p := range fr.PDFs {
			sig, err := p.Signal.histogram()
			if err != nil {
				return nil, fmt.Errorf("pdfs[%d].signal: %w", i, err)
			}
			bkg, err := p.Background.histogram()
			if err != nil {
				return nil, fmt.Errorf("pdfs[%d].background: %w", i, err)
			}
			rec.PDFs = append(rec.PDFs, SigBkg{
				UseSpline:  p.Spline,
				Signal:     sig,
				Background: bkg,
			})
		}
		return rec, nil

	case KindNormalize:
		if len(fr.Maps) == 0 {
			return nil, fmt.Errorf("normalize record has no maps")
		}
		rec := &Normalize{
			CategoryIdx: catIdx,
			In:          append([]string(nil), fr.Inputs...),
		}
		for i, m := range fr.Maps {
			h, err := m.histogram()
			if err != nil {
				return nil, fmt.Errorf("maps[%d]: %w", i, err)
			}
			rec.Maps = append(rec.Maps, h)
		}
		return rec, nil

	default:
		return nil, fmt.Errorf("unknown kind %q: want %s|%s", fr.Kind, KindLikelihood, KindNormalize)
	}
}

// histogram materializes one calibration histogram, importing from
// Prometheus when a prom reference is given.
func (fh *fileHist) histogram() (*curve.Histogram, error) {
	if fh.Prom != nil {
		return fh.Prom.Import()
	}
	return curve.NewHistogram(fh.Min, fh.Max, fh.Values)
}
