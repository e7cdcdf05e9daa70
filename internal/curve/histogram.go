package curve

import "fmt"

// Histogram is a uniformly binned histogram over the value range
// [min, min+width). The stored contents carry an underflow entry at the
// front and an overflow entry at the back; only the interior bins cover
// the declared range.
type Histogram struct {
	min    float64
	width  float64
	values []float64 // underflow, interior bins..., overflow
	total  float64   // sum of interior bin contents
}

// NewHistogram builds a Histogram covering [min, max) from contents that
// include the underflow and overflow entries, so at least three values are
// required.
func NewHistogram(min, max float64, values []float64) (*Histogram, error) {
	if len(values) < 3 {
		return nil, fmt.Errorf("curve: histogram needs underflow, overflow and at least one interior bin, got %d values", len(values))
	}
	if !(max > min) {
		return nil, fmt.Errorf("curve: histogram range [%g, %g) is empty", min, max)
	}

	h := &Histogram{
		min:    min,
		width:  max - min,
		values: append([]float64(nil), values...),
	}
	for _, v := range h.values[1 : len(h.values)-1] {
		h.total += v
	}
	return h, nil
}

// Min returns the lower edge of the covered value range.
func (h *Histogram) Min() float64 { return h.min }

// Width returns the width of the covered value range.
func (h *Histogram) Width() float64 { return h.width }

// Bins returns the number of interior bins.
func (h *Histogram) Bins() int { return len(h.values) - 2 }

// Interior returns a copy of the interior bin contents, with the underflow
// and overflow entries trimmed. This is the control-point layout the spline
// PDFs are built from.
func (h *Histogram) Interior() []float64 {
	return append([]float64(nil), h.values[1:len(h.values)-1]...)
}

// NormalizedValue returns the content of the bin holding v divided by the
// total interior content. Values outside [min, min+width) and empty
// histograms yield 0.
func (h *Histogram) NormalizedValue(v float64) float64 {
	if h.total == 0 || v < h.min || v >= h.min+h.width {
		return 0
	}
	bins := h.Bins()
	i := int((v - h.min) / h.width * float64(bins))
	if i >= bins {
		i = bins - 1 // float round-off at the upper edge
	}
	return h.values[i+1] / h.total
}
