// Package api serves the HTTP JSON interface: event scoring, stage and
// result introspection, alerts and health. Scored results are stored for
// the results endpoints and the WebSocket stream, observed by the monitor
// engine, and handed to the exporter when one is configured.
package api
