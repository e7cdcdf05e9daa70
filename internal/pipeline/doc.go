// Package pipeline owns the variable slots and drives the processors: each
// stage is configured exactly once at construction against its declared
// input variables, and evaluated once per event. Stage outputs are appended
// to the event's visible variables under derived slot names, so later
// stages can consume earlier stages' results by name.
//
// A stage whose calibration shape does not match its slot count declares no
// outputs during configuration; New rejects such a pipeline outright rather
// than letting a misconfigured stage run events.
package pipeline
