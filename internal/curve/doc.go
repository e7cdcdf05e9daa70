// Package curve provides the immutable numeric primitives the evaluation
// core is built on: a natural cubic spline over equidistant control points
// on the unit interval, and a uniformly binned histogram with underflow and
// overflow entries.
//
// Both types are fully constructed up front and never mutated afterwards,
// so they are safe to share across concurrent evaluations.
package curve
