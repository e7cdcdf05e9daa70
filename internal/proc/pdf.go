package proc

import (
	"github.com/mvakit/mvakit/internal/curve"
)

// PDF maps a raw variable value to a probability-density estimate.
// Implementations are pure functions of immutable calibration state. The
// spline variant can return small negative interpolation artifacts; callers
// clamp with max(0, density) rather than the evaluator hiding them.
type PDF interface {
	Density(v float64) float64
}

// splinePDF evaluates a cubic spline fitted through a calibration
// histogram's interior bins, rescaled so the result is a density consistent
// with the histogram's total weight.
type splinePDF struct {
	min, width float64
	spline     *curve.Spline
}

// NewSplinePDF builds a spline-based PDF from a calibration histogram.
func NewSplinePDF(h *curve.Histogram) (PDF, error) {
	s, err := curve.NewSpline(h.Interior())
	if err != nil {
		return nil, err
	}
	return &splinePDF{min: h.Min(), width: h.Width(), spline: s}, nil
}

func (p *splinePDF) Density(v float64) float64 {
	x := (v - p.min) / p.width
	return p.spline.Eval(x) * float64(p.spline.Entries()) / p.spline.Area()
}

// histogramPDF looks up the normalized bin content directly, rescaled by the
// bin count to be comparable in scale to the spline variant.
type histogramPDF struct {
	h *curve.Histogram
}

// NewHistogramPDF builds a binned-lookup PDF from a calibration histogram.
func NewHistogramPDF(h *curve.Histogram) PDF {
	return &histogramPDF{h: h}
}

func (p *histogramPDF) Density(v float64) float64 {
	return p.h.NormalizedValue(v) * float64(p.h.Bins())
}
