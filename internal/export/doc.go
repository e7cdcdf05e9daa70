// Package export forwards evaluation results to a downstream HTTP endpoint
// as JSON. Enqueueing is non-blocking: when the buffer is full the oldest
// result is evicted. A background loop drains the buffer with truncated
// exponential backoff, discarding results the endpoint permanently rejects
// (4xx) and retrying transient failures.
package export
