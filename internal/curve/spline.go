package curve

import "fmt"

// Spline is a natural cubic spline through k control values placed at
// equidistant abscissae on [0, 1]. The segment coefficients and cumulative
// segment areas are computed once at construction.
type Spline struct {
	values []float64
	m      []float64 // second derivatives at the control points, m[0] = m[k-1] = 0
	cum    []float64 // cumulative unnormalized integral up to each control point
	area   float64   // total unnormalized integral over [0, 1]
	h      float64   // abscissa spacing, 1/(k-1)
}

// NewSpline builds a Spline through the given control values.
// At least one value is required; a single value yields a constant curve.
func NewSpline(values []float64) (*Spline, error) {
	k := len(values)
	if k == 0 {
		return nil, fmt.Errorf("curve: spline needs at least one control value")
	}

	s := &Spline{values: append([]float64(nil), values...)}
	if k == 1 {
		s.area = values[0]
		s.cum = []float64{0, s.area}
		return s, nil
	}

	s.h = 1 / float64(k-1)
	s.m = solveNatural(s.values, s.h)

	s.cum = make([]float64, k)
	for i := 0; i < k-1; i++ {
		s.cum[i+1] = s.cum[i] + s.segmentIntegral(i, s.h)
	}
	s.area = s.cum[k-1]
	return s, nil
}

// Entries returns the number of control points the spline was built from.
func (s *Spline) Entries() int { return len(s.values) }

// Area returns the unnormalized integral of the spline over [0, 1].
func (s *Spline) Area() float64 { return s.area }

// Eval returns the spline value at x. Arguments outside [0, 1] clamp to the
// boundary; NaN propagates through the arithmetic.
func (s *Spline) Eval(x float64) float64 {
	if len(s.values) == 1 {
		return s.values[0]
	}
	x = clamp01(x)
	i, t := s.locate(x)

	u := t
	v := s.h - t
	return s.m[i]*v*v*v/(6*s.h) +
		s.m[i+1]*u*u*u/(6*s.h) +
		(s.values[i]/s.h-s.m[i]*s.h/6)*v +
		(s.values[i+1]/s.h-s.m[i+1]*s.h/6)*u
}

// Integral returns the cumulative integral of the spline from 0 to x,
// normalized by the total area so that Integral(1) == 1. Arguments outside
// [0, 1] clamp to the boundary. A zero-area spline integrates to 0.
func (s *Spline) Integral(x float64) float64 {
	if s.area == 0 {
		return 0
	}
	x = clamp01(x)
	if len(s.values) == 1 {
		return x
	}
	i, t := s.locate(x)
	return (s.cum[i] + s.segmentIntegral(i, t)) / s.area
}

// locate maps x in [0, 1] to a segment index and the offset into it.
func (s *Spline) locate(x float64) (int, float64) {
	k := len(s.values)
	i := int(x / s.h)
	if i > k-2 {
		i = k - 2
	}
	return i, x - float64(i)*s.h
}

// segmentIntegral integrates segment i from its left edge over a span of t,
// with 0 <= t <= h.
func (s *Spline) segmentIntegral(i int, t float64) float64 {
	h := s.h
	v := h - t
	return s.m[i]*(h*h*h*h-v*v*v*v)/(24*h) +
		s.m[i+1]*t*t*t*t/(24*h) +
		(s.values[i]/h-s.m[i]*h/6)*(h*h-v*v)/2 +
		(s.values[i+1]/h-s.m[i+1]*h/6)*t*t/2
}

// solveNatural solves the tridiagonal system for the second derivatives of a
// natural cubic spline over equidistant points (Thomas algorithm).
func solveNatural(y []float64, h float64) []float64 {
	k := len(y)
	m := make([]float64, k)
	if k < 3 {
		return m // a two-point spline is a straight line
	}

	n := k - 2
	diag := make([]float64, n)
	rhs := make([]float64, n)
	for i := 0; i < n; i++ {
		diag[i] = 4
		rhs[i] = 6 * (y[i] - 2*y[i+1] + y[i+2]) / (h * h)
	}
	for i := 1; i < n; i++ {
		f := 1 / diag[i-1]
		diag[i] -= f
		rhs[i] -= f * rhs[i-1]
	}
	m[n] = rhs[n-1] / diag[n-1]
	for i := n - 2; i >= 0; i-- {
		m[i+1] = (rhs[i] - m[i+2]) / diag[i]
	}
	return m
}

// clamp01 restricts x to the range [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
