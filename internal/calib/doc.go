// Package calib defines the immutable calibration records the processors
// are constructed from, and loads them from YAML files. Histogram contents
// may be given inline or imported from a Prometheus text exposition — a
// local file or an authenticated HTTP endpoint — in which case the named
// histogram metric's buckets become the calibration bins.
package calib
