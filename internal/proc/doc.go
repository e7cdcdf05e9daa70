// Package proc implements the per-event variable processors: a
// signal-vs-background likelihood estimator and a distribution-equalizing
// normalizer, both driven through cursor abstractions over ordered,
// variable-arity value slots.
//
// Processors are configured exactly once against a slot count before any
// event is evaluated. A processor that declares no outputs during
// configuration is structurally misconfigured (its calibration table does
// not match the slot layout) and must be rejected by the caller. Evaluation
// touches no mutable state, so one configured processor may evaluate
// independent events concurrently.
//
// Per-event abstention — emitting no value for an event — is a normal
// outcome, distinct from misconfiguration: it happens when the category
// selector is out of range, when no variable carries an informative value,
// or when the accumulated likelihood underflows.
package proc
