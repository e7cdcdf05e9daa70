package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/mvakit/mvakit/internal/config"
	"github.com/mvakit/mvakit/internal/pipeline"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
	sendTimeout       = 10 * time.Second
)

// Exporter buffers results and ships them to the configured endpoint.
// Enqueue is non-blocking; when the buffer is full the oldest result is
// evicted. Run must be called in a goroutine to drain the buffer.
type Exporter struct {
	cfg    config.ExportConfig
	buf    chan *pipeline.Result
	postFn postFunc // injectable for tests
}

// postFunc sends one result to the endpoint. Abstracted so tests can
// exercise the drain loop without a live server.
type postFunc func(ctx context.Context, res *pipeline.Result) error

// permanentError marks a result the endpoint rejected; it is discarded
// rather than retried.
type permanentError struct{ status int }

func (e *permanentError) Error() string {
	return fmt.Sprintf("endpoint rejected result with HTTP %d", e.status)
}

// New creates an Exporter from the export configuration.
func New(cfg config.ExportConfig) *Exporter {
	e := &Exporter{
		cfg: cfg,
		buf: make(chan *pipeline.Result, cfg.BufferSize),
	}
	client := &http.Client{Timeout: sendTimeout}
	e.postFn = func(ctx context.Context, res *pipeline.Result) error {
		return e.post(ctx, client, res)
	}
	return e
}

// Enqueue adds a result to the outgoing buffer. If the buffer is full the
// oldest entry is evicted to make room.
func (e *Exporter) Enqueue(res *pipeline.Result) {
	select {
	case e.buf <- res:
	default:
		// Buffer full — drop the oldest result, keep the newest.
		select {
		case <-e.buf:
			slog.Warn("export: buffer full, evicted oldest result",
				"event", res.EventID, "buffer_cap", cap(e.buf))
		default:
		}
		e.buf <- res
	}
}

// Run drains the buffer, sending results to the endpoint. Transient
// failures back off exponentially and the result is retried; permanent
// rejections are logged and discarded. Run blocks until ctx is cancelled.
func (e *Exporter) Run(ctx context.Context) {
	bo := newBackoff()

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-e.buf:
			sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
			err := e.postFn(sendCtx, res)
			cancel()

			if err == nil {
				bo.reset()
				slog.Debug("export: result delivered", "event", res.EventID)
				continue
			}

			var perm *permanentError
			if errors.As(err, &perm) {
				slog.Error("export: permanent send error, discarding result",
					"event", res.EventID, "err", err)
				bo.reset()
				continue
			}

			// Put the result back if there's room; losing it is acceptable
			// since the store still holds it until TTL.
			select {
			case e.buf <- res:
			default:
			}

			wait := bo.next()
			slog.Warn("export: send failed, backing off",
				"endpoint", e.cfg.Endpoint,
				"err", err,
				"retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}
}

// post sends one result as JSON, applying the configured outgoing auth.
func (e *Exporter) post(ctx context.Context, client *http.Client, res *pipeline.Result) error {
	body, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	switch e.cfg.Auth.Mode {
	case "apikey":
		header := e.cfg.Auth.Header
		if header == "" {
			header = "x-api-key"
		}
		req.Header.Set(header, e.cfg.Auth.Key())
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+e.cfg.Auth.Token())
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &permanentError{status: resp.StatusCode}
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("endpoint returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// Apply ±25 % jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = backoffInitial
}
