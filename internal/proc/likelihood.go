package proc

import (
	"fmt"
	"math"

	"github.com/mvakit/mvakit/internal/calib"
)

func init() {
	Register(calib.KindLikelihood, func(name string, rec calib.Record) (Processor, error) {
		lr, ok := rec.(*calib.Likelihood)
		if !ok {
			return nil, fmt.Errorf("proc: %s record has wrong type %T", calib.KindLikelihood, rec)
		}
		return NewLikelihood(name, lr)
	})
}

// minDensity is the floor below which a combined signal+background density
// is treated as uninformative and skipped.
const minDensity = 1e-30

// sigBkg is one variable's signal/background evaluator pair.
type sigBkg struct {
	signal     PDF
	background PDF
}

// Likelihood combines per-variable signal and background densities into a
// single signal/(signal+background) estimate, or abstains when the event
// carries no informative values or the product underflows.
type Likelihood struct {
	name string
	pdfs []sigBkg
	bias float64
	blocks
}

// NewLikelihood constructs a likelihood processor from its calibration
// record. The per-pair UseSpline flag selects the PDF representation for
// both histograms of the pair.
func NewLikelihood(name string, rec *calib.Likelihood) (*Likelihood, error) {
	p := &Likelihood{
		name: name,
		bias: rec.Bias,
		blocks: blocks{
			categoryIdx: rec.CategoryIdx,
			nCategories: 1,
		},
	}
	for i, pair := range rec.PDFs {
		var sb sigBkg
		if pair.UseSpline {
			sig, err := NewSplinePDF(pair.Signal)
			if err != nil {
				return nil, fmt.Errorf("proc: %s: pdf %d signal: %w", name, i, err)
			}
			bkg, err := NewSplinePDF(pair.Background)
			if err != nil {
				return nil, fmt.Errorf("proc: %s: pdf %d background: %w", name, i, err)
			}
			sb = sigBkg{signal: sig, background: bkg}
		} else {
			sb = sigBkg{
				signal:     NewHistogramPDF(pair.Signal),
				background: NewHistogramPDF(pair.Background),
			}
		}
		p.pdfs = append(p.pdfs, sb)
	}
	return p, nil
}

// Name returns the processor's instance name.
func (p *Likelihood) Name() string { return p.name }

// Configure validates the calibration table against the slot count and
// declares the slot arities: the category slot takes exactly one value,
// every other slot any number, and the single output is optional. A shape
// mismatch leaves the cursor without output declarations.
func (p *Likelihood) Configure(c *ConfCursor) {
	if !p.blocks.configure(c.Slots(), len(p.pdfs)) {
		return
	}

	for i := 0; i < c.Slots(); i++ {
		if i == p.categoryIdx {
			c.Accept(ArityOne)
		} else {
			c.Accept(ArityAny)
		}
	}
	c.ProduceOptional(ArityOne)
}

// Eval walks the event's slots against the selected PDF block and emits the
// combined likelihood ratio, or seals an empty output to abstain.
func (p *Likelihood) Eval(c *ValueCursor) {
	start, ok := p.blocks.resolve(c)
	if !ok {
		c.EndSlot()
		return
	}

	vars := 0
	signal := p.bias
	background := 1.0

	pdf := start
	for i := 0; i < c.Slots(); i++ {
		if i == p.categoryIdx {
			c.Advance()
			continue
		}
		sb := p.pdfs[pdf]
		for _, v := range c.Values() {
			sp := math.Max(0, sb.signal.Density(v))
			bp := math.Max(0, sb.background.Density(v))
			if sp+bp < minDensity {
				continue // uninformative value
			}
			vars++
			signal *= sp
			background *= bp
		}
		pdf++
		c.Advance()
	}

	// The underflow guard scales with the number of multiplied factors:
	// many sub-unity densities can legitimately drive the product toward
	// the representable-precision floor, and a ratio of two such numbers
	// is numeric noise.
	if vars == 0 || signal+background < math.Exp(float64(-6*vars-2)) {
		c.EndSlot()
		return
	}
	c.Emit(signal / (signal + background))
	c.EndSlot()
}
