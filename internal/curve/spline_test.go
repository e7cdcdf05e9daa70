package curve

import (
	"math"
	"testing"
)

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestNewSpline_Empty(t *testing.T) {
	if _, err := NewSpline(nil); err == nil {
		t.Fatal("NewSpline(nil): expected error, got nil")
	}
}

func TestSpline_SingleValue(t *testing.T) {
	s, err := NewSpline([]float64{3.5})
	if err != nil {
		t.Fatalf("NewSpline: %v", err)
	}
	if s.Entries() != 1 {
		t.Errorf("Entries = %d, want 1", s.Entries())
	}
	for _, x := range []float64{0, 0.25, 1, -1, 2} {
		if got := s.Eval(x); got != 3.5 {
			t.Errorf("Eval(%g) = %g, want 3.5", x, got)
		}
	}
	if !almostEqual(s.Area(), 3.5, 1e-12) {
		t.Errorf("Area = %g, want 3.5", s.Area())
	}
	// A constant curve integrates linearly.
	if got := s.Integral(0.25); !almostEqual(got, 0.25, 1e-12) {
		t.Errorf("Integral(0.25) = %g, want 0.25", got)
	}
}

func TestSpline_InterpolatesControlPoints(t *testing.T) {
	values := []float64{1, 4, 2, 5}
	s, err := NewSpline(values)
	if err != nil {
		t.Fatalf("NewSpline: %v", err)
	}
	h := 1.0 / 3.0
	for i, want := range values {
		x := float64(i) * h
		if got := s.Eval(x); !almostEqual(got, want, 1e-9) {
			t.Errorf("Eval(%g) = %g, want control value %g", x, got, want)
		}
	}
}

func TestSpline_ConstantValues(t *testing.T) {
	s, err := NewSpline([]float64{2, 2, 2, 2, 2})
	if err != nil {
		t.Fatalf("NewSpline: %v", err)
	}
	for _, x := range []float64{0, 0.1, 0.37, 0.5, 0.99, 1} {
		if got := s.Eval(x); !almostEqual(got, 2, 1e-12) {
			t.Errorf("Eval(%g) = %g, want 2", x, got)
		}
		if got := s.Integral(x); !almostEqual(got, x, 1e-12) {
			t.Errorf("Integral(%g) = %g, want %g", x, got, x)
		}
	}
	if !almostEqual(s.Area(), 2, 1e-12) {
		t.Errorf("Area = %g, want 2", s.Area())
	}
}

func TestSpline_LinearValues(t *testing.T) {
	// Control values on the line y = 1 + 2x have vanishing second
	// differences, so the natural spline reproduces the line exactly.
	s, err := NewSpline([]float64{1, 2, 3})
	if err != nil {
		t.Fatalf("NewSpline: %v", err)
	}
	for _, x := range []float64{0, 0.25, 0.5, 0.75, 1} {
		want := 1 + 2*x
		if got := s.Eval(x); !almostEqual(got, want, 1e-9) {
			t.Errorf("Eval(%g) = %g, want %g", x, got, want)
		}
	}
	if !almostEqual(s.Area(), 2, 1e-9) {
		t.Errorf("Area = %g, want 2", s.Area())
	}
	// Integral of 1+2x from 0 to 0.5 is 0.75; normalized by area 2.
	if got := s.Integral(0.5); !almostEqual(got, 0.375, 1e-9) {
		t.Errorf("Integral(0.5) = %g, want 0.375", got)
	}
}

func TestSpline_TwoPointLine(t *testing.T) {
	s, err := NewSpline([]float64{1, 3})
	if err != nil {
		t.Fatalf("NewSpline: %v", err)
	}
	if got := s.Eval(0.5); !almostEqual(got, 2, 1e-9) {
		t.Errorf("Eval(0.5) = %g, want 2", got)
	}
	if !almostEqual(s.Area(), 2, 1e-9) {
		t.Errorf("Area = %g, want 2", s.Area())
	}
	if got := s.Integral(0.5); !almostEqual(got, 0.375, 1e-9) {
		t.Errorf("Integral(0.5) = %g, want 0.375", got)
	}
}

func TestSpline_EvalClamps(t *testing.T) {
	s, err := NewSpline([]float64{1, 4, 2, 5})
	if err != nil {
		t.Fatalf("NewSpline: %v", err)
	}
	if got, want := s.Eval(-0.5), s.Eval(0); got != want {
		t.Errorf("Eval(-0.5) = %g, want boundary value %g", got, want)
	}
	if got, want := s.Eval(1.5), s.Eval(1); got != want {
		t.Errorf("Eval(1.5) = %g, want boundary value %g", got, want)
	}
}

func TestSpline_IntegralBoundsAndMonotonicity(t *testing.T) {
	s, err := NewSpline([]float64{1, 4, 2, 5, 3})
	if err != nil {
		t.Fatalf("NewSpline: %v", err)
	}
	if got := s.Integral(0); !almostEqual(got, 0, 1e-12) {
		t.Errorf("Integral(0) = %g, want 0", got)
	}
	if got := s.Integral(1); !almostEqual(got, 1, 1e-12) {
		t.Errorf("Integral(1) = %g, want 1", got)
	}
	if got, want := s.Integral(-2), s.Integral(0); got != want {
		t.Errorf("Integral(-2) = %g, want clamped %g", got, want)
	}
	if got, want := s.Integral(2), s.Integral(1); got != want {
		t.Errorf("Integral(2) = %g, want clamped %g", got, want)
	}

	prev := 0.0
	for x := 0.0; x <= 1.0; x += 0.01 {
		cur := s.Integral(x)
		if cur < prev-1e-12 {
			t.Fatalf("Integral not monotone at x=%g: %g < %g", x, cur, prev)
		}
		prev = cur
	}
}

func TestSpline_ZeroArea(t *testing.T) {
	s, err := NewSpline([]float64{0})
	if err != nil {
		t.Fatalf("NewSpline: %v", err)
	}
	if got := s.Integral(0.5); got != 0 {
		t.Errorf("Integral on zero-area spline = %g, want 0", got)
	}
}
