// Package ws streams recently scored results to WebSocket clients. A hub
// goroutine broadcasts the live result set on a fixed interval; per-client
// write pumps with ping/pong keepalive isolate slow consumers, which are
// disconnected rather than allowed to stall the broadcast.
package ws
