// Package store keeps the most recent evaluation results in memory, keyed
// by event id, with background TTL eviction. It backs the results API and
// the WebSocket stream.
package store
