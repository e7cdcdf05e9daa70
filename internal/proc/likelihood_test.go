package proc

import (
	"math"
	"testing"

	"github.com/mvakit/mvakit/internal/calib"
	"github.com/mvakit/mvakit/internal/curve"
)

// constPDF is a stub evaluator with a fixed density everywhere.
type constPDF float64

func (c constPDF) Density(float64) float64 { return float64(c) }

// newTestLikelihood builds a likelihood processor directly from stub PDFs.
func newTestLikelihood(categoryIdx int, bias float64, pairs ...sigBkg) *Likelihood {
	return &Likelihood{
		name: "lh",
		pdfs: pairs,
		bias: bias,
		blocks: blocks{
			categoryIdx: categoryIdx,
			nCategories: 1,
		},
	}
}

// evalLikelihood configures p for len(slots) input slots and evaluates one
// event, returning the sealed output slots.
func evalLikelihood(t *testing.T, p *Likelihood, slots [][]float64) [][]float64 {
	t.Helper()
	cc := NewConfCursor(len(slots))
	p.Configure(cc)
	if len(cc.Outputs()) == 0 {
		t.Fatal("Configure declared no outputs")
	}
	vc := NewValueCursor(slots)
	p.Eval(vc)
	return vc.Outputs()
}

func TestLikelihood_Eval(t *testing.T) {
	tests := []struct {
		name  string
		p     *Likelihood
		slots [][]float64
		want  float64 // -1 = expect abstention
	}{
		{
			name:  "single discriminating variable",
			p:     newTestLikelihood(-1, 1, sigBkg{constPDF(0.8), constPDF(0.05)}),
			slots: [][]float64{{3.2}},
			want:  0.8 / 0.85,
		},
		{
			name:  "equal densities with unit bias",
			p:     newTestLikelihood(-1, 1, sigBkg{constPDF(0.6), constPDF(0.6)}),
			slots: [][]float64{{1}},
			want:  0.5,
		},
		{
			name:  "bias shifts the estimate",
			p:     newTestLikelihood(-1, 2, sigBkg{constPDF(0.5), constPDF(0.5)}),
			slots: [][]float64{{1}},
			want:  2.0 / 3.0,
		},
		{
			name: "two variables multiply",
			p: newTestLikelihood(-1, 1,
				sigBkg{constPDF(0.8), constPDF(0.2)},
				sigBkg{constPDF(0.9), constPDF(0.3)}),
			slots: [][]float64{{1}, {1}},
			// signal = 0.8*0.9, background = 0.2*0.3
			want: 0.72 / (0.72 + 0.06),
		},
		{
			name:  "repeated values in one slot multiply",
			p:     newTestLikelihood(-1, 1, sigBkg{constPDF(0.8), constPDF(0.2)}),
			slots: [][]float64{{1, 2}},
			want:  0.64 / (0.64 + 0.04),
		},
		{
			name:  "negative density artifact clamps to zero",
			p:     newTestLikelihood(-1, 1, sigBkg{constPDF(-0.1), constPDF(0.4)}),
			slots: [][]float64{{1}},
			want:  0,
		},
		{
			name:  "no values at all abstains",
			p:     newTestLikelihood(-1, 1, sigBkg{constPDF(0.8), constPDF(0.2)}),
			slots: [][]float64{nil},
			want:  -1,
		},
		{
			name:  "vanishing densities are skipped",
			p:     newTestLikelihood(-1, 1, sigBkg{constPDF(0), constPDF(0)}),
			slots: [][]float64{{1, 2, 3}},
			want:  -1,
		},
		{
			name:  "underflowing product abstains",
			p:     newTestLikelihood(-1, 1, sigBkg{constPDF(1e-5), constPDF(1e-5)}),
			slots: [][]float64{{1}},
			want:  -1,
		},
		{
			name:  "well-scaled product does not trip the guard",
			p:     newTestLikelihood(-1, 1, sigBkg{constPDF(1), constPDF(1)}),
			slots: [][]float64{{1}},
			want:  0.5,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := evalLikelihood(t, tc.p, tc.slots)
			if len(out) != 1 {
				t.Fatalf("output slots = %d, want 1", len(out))
			}
			if tc.want < 0 {
				if len(out[0]) != 0 {
					t.Fatalf("expected abstention, got %v", out[0])
				}
				return
			}
			if len(out[0]) != 1 {
				t.Fatalf("expected one value, got %v", out[0])
			}
			if !almostEqual(out[0][0], tc.want, 1e-12) {
				t.Errorf("likelihood = %v, want %v", out[0][0], tc.want)
			}
		})
	}
}

func TestLikelihood_UnderflowGuardScalesWithVariables(t *testing.T) {
	// One variable with density 0.01 each: sum 0.02 > exp(-8), emits.
	p := newTestLikelihood(-1, 1, sigBkg{constPDF(0.01), constPDF(0.01)})
	out := evalLikelihood(t, p, [][]float64{{1}})
	if len(out[0]) != 1 {
		t.Fatalf("one variable: expected a value, got %v", out[0])
	}

	// Five values of the same density drive the product to 2e-10, but the
	// guard loosens to exp(-32) and the result still comes out.
	out = evalLikelihood(t, p, [][]float64{{1, 2, 3, 4, 5}})
	if len(out[0]) != 1 {
		t.Fatalf("five values: expected a value, got %v", out[0])
	}
	if !almostEqual(out[0][0], 0.5, 1e-12) {
		t.Errorf("five equal-density values = %v, want 0.5", out[0][0])
	}

	if math.Pow(0.01, 5)*2 >= math.Exp(-8) {
		t.Fatal("test premise broken: product should sit below the single-variable guard")
	}
}

func TestLikelihood_Categories(t *testing.T) {
	// Two categories, each with one discriminating variable after the
	// category slot. Block 0 favors signal, block 1 favors background.
	p := newTestLikelihood(0, 1,
		sigBkg{constPDF(0.9), constPDF(0.1)},
		sigBkg{constPDF(0.1), constPDF(0.9)},
	)

	out := evalLikelihood(t, p, [][]float64{{0}, {5}})
	if !almostEqual(out[0][0], 0.9, 1e-12) {
		t.Errorf("category 0 likelihood = %v, want 0.9", out[0][0])
	}

	out = evalLikelihood(t, p, [][]float64{{1}, {5}})
	if !almostEqual(out[0][0], 0.1, 1e-12) {
		t.Errorf("category 1 likelihood = %v, want 0.1", out[0][0])
	}
}

func TestLikelihood_CategoryAbstentions(t *testing.T) {
	p := newTestLikelihood(0, 1,
		sigBkg{constPDF(0.9), constPDF(0.1)},
		sigBkg{constPDF(0.1), constPDF(0.9)},
	)

	tests := []struct {
		name  string
		slots [][]float64
	}{
		{"category out of range", [][]float64{{7}, {5}}},
		{"negative category", [][]float64{{-2}, {5}}},
		{"empty category slot", [][]float64{nil, {5}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := evalLikelihood(t, p, tc.slots)
			if len(out) != 1 || len(out[0]) != 0 {
				t.Errorf("expected single empty output, got %v", out)
			}
		})
	}
}

func TestLikelihood_ConfigureShapeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		p     *Likelihood
		slots int
	}{
		{
			name:  "flat table size mismatch",
			p:     newTestLikelihood(-1, 1, sigBkg{constPDF(1), constPDF(1)}),
			slots: 2,
		},
		{
			name: "categorized table not divisible",
			p: newTestLikelihood(0, 1,
				sigBkg{constPDF(1), constPDF(1)},
				sigBkg{constPDF(1), constPDF(1)},
				sigBkg{constPDF(1), constPDF(1)},
				sigBkg{constPDF(1), constPDF(1)},
				sigBkg{constPDF(1), constPDF(1)},
			),
			slots: 4,
		},
		{
			name:  "categorized with only the selector slot",
			p:     newTestLikelihood(0, 1, sigBkg{constPDF(1), constPDF(1)}),
			slots: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cc := NewConfCursor(tc.slots)
			tc.p.Configure(cc)
			if len(cc.Outputs()) != 0 {
				t.Errorf("expected no output declarations, got %d", len(cc.Outputs()))
			}
		})
	}
}

func TestNewLikelihood_FromCalibration(t *testing.T) {
	flat := func() *curve.Histogram {
		h, err := curve.NewHistogram(0, 1, []float64{0, 1, 1, 1, 1, 0})
		if err != nil {
			t.Fatalf("NewHistogram: %v", err)
		}
		return h
	}

	rec := &calib.Likelihood{
		CategoryIdx: -1,
		Bias:        1,
		In:          []string{"pt"},
		PDFs: []calib.SigBkg{
			{UseSpline: false, Signal: flat(), Background: flat()},
		},
	}
	p, err := NewLikelihood("lh", rec)
	if err != nil {
		t.Fatalf("NewLikelihood: %v", err)
	}
	if p.Name() != "lh" {
		t.Errorf("Name = %q, want lh", p.Name())
	}

	// Identical flat signal and background densities give 0.5 everywhere
	// in range.
	out := evalLikelihood(t, p, [][]float64{{0.4}})
	if len(out[0]) != 1 || !almostEqual(out[0][0], 0.5, 1e-12) {
		t.Errorf("flat sig/bkg likelihood = %v, want [0.5]", out[0])
	}

	// Out-of-range values have zero density on both sides and are skipped.
	out = evalLikelihood(t, p, [][]float64{{5}})
	if len(out[0]) != 0 {
		t.Errorf("out-of-range value: expected abstention, got %v", out[0])
	}
}

func TestNewLikelihood_SplineVariant(t *testing.T) {
	flat := func() *curve.Histogram {
		h, err := curve.NewHistogram(0, 1, []float64{0, 2, 2, 2, 2, 0})
		if err != nil {
			t.Fatalf("NewHistogram: %v", err)
		}
		return h
	}

	rec := &calib.Likelihood{
		CategoryIdx: -1,
		Bias:        1,
		In:          []string{"pt"},
		PDFs: []calib.SigBkg{
			{UseSpline: true, Signal: flat(), Background: flat()},
		},
	}
	p, err := NewLikelihood("lh", rec)
	if err != nil {
		t.Fatalf("NewLikelihood: %v", err)
	}
	out := evalLikelihood(t, p, [][]float64{{0.5}})
	if len(out[0]) != 1 || !almostEqual(out[0][0], 0.5, 1e-9) {
		t.Errorf("flat spline sig/bkg likelihood = %v, want [0.5]", out[0])
	}
}
