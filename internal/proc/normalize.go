package proc

import (
	"fmt"

	"github.com/mvakit/mvakit/internal/calib"
	"github.com/mvakit/mvakit/internal/curve"
)

func init() {
	Register(calib.KindNormalize, func(name string, rec calib.Record) (Processor, error) {
		nr, ok := rec.(*calib.Normalize)
		if !ok {
			return nil, fmt.Errorf("proc: %s record has wrong type %T", calib.KindNormalize, rec)
		}
		return NewNormalize(name, nr)
	})
}

// eqMap is one variable's equalization curve: a spline fitted through the
// calibration histogram's interior bins, evaluated via cumulative integral
// so raw values map into [0, 1] with the calibrated distribution flattened.
type eqMap struct {
	min, width float64
	spline     *curve.Spline
}

func (m *eqMap) apply(v float64) float64 {
	return m.spline.Integral((v - m.min) / m.width)
}

// Normalize remaps every value of every non-category slot into the unit
// interval, preserving the per-slot value count.
type Normalize struct {
	name string
	maps []eqMap
	blocks
}

// NewNormalize constructs a normalization processor from its calibration
// record.
func NewNormalize(name string, rec *calib.Normalize) (*Normalize, error) {
	p := &Normalize{
		name: name,
		blocks: blocks{
			categoryIdx: rec.CategoryIdx,
			nCategories: 1,
		},
	}
	for i, h := range rec.Maps {
		s, err := curve.NewSpline(h.Interior())
		if err != nil {
			return nil, fmt.Errorf("proc: %s: map %d: %w", name, i, err)
		}
		p.maps = append(p.maps, eqMap{min: h.Min(), width: h.Width(), spline: s})
	}
	return p, nil
}

// Name returns the processor's instance name.
func (p *Normalize) Name() string { return p.name }

// Configure validates the calibration table against the slot count and
// declares the slot arities: the category slot takes exactly one value,
// every other slot takes any number of values in and produces the same
// number out. A shape mismatch leaves the cursor without output
// declarations.
func (p *Normalize) Configure(c *ConfCursor) {
	if !p.blocks.configure(c.Slots(), len(p.maps)) {
		return
	}

	for i := 0; i < c.Slots(); i++ {
		if i == p.categoryIdx {
			c.Accept(ArityOne)
		} else {
			c.Accept(ArityAny)
			c.Produce(ArityAny)
		}
	}
}

// Eval remaps each non-category slot's values through the matching
// equalization curve. A failed category resolution seals an empty output
// for every non-category slot — a uniform per-event abstention, not a halt.
func (p *Normalize) Eval(c *ValueCursor) {
	start, ok := p.blocks.resolve(c)
	if !ok {
		for i := 0; i < c.Slots(); i++ {
			if i == p.categoryIdx {
				c.Advance()
				continue
			}
			c.EndSlot()
			c.Advance()
		}
		return
	}

	m := start
	for i := 0; i < c.Slots(); i++ {
		if i == p.categoryIdx {
			c.Advance()
			continue
		}
		for _, v := range c.Values() {
			c.Emit(p.maps[m].apply(v))
		}
		c.EndSlot()
		m++
		c.Advance()
	}
}
