package export

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mvakit/mvakit/internal/config"
	"github.com/mvakit/mvakit/internal/pipeline"
)

func res(id string) *pipeline.Result {
	return &pipeline.Result{
		EventID: id,
		Outputs: map[string][]float64{"btag": {0.9}},
	}
}

func TestEnqueue_EvictsOldestWhenFull(t *testing.T) {
	e := New(config.ExportConfig{Endpoint: "http://unused", BufferSize: 2})

	e.Enqueue(res("a"))
	e.Enqueue(res("b"))
	e.Enqueue(res("c")) // evicts "a"

	if got := len(e.buf); got != 2 {
		t.Fatalf("buffer length = %d, want 2", got)
	}
	first := <-e.buf
	second := <-e.buf
	if first.EventID != "b" || second.EventID != "c" {
		t.Errorf("buffer order = [%s %s], want [b c]", first.EventID, second.EventID)
	}
}

func TestRun_DeliversBufferedResults(t *testing.T) {
	e := New(config.ExportConfig{Endpoint: "http://unused", BufferSize: 8})

	delivered := make(chan string, 8)
	e.postFn = func(ctx context.Context, r *pipeline.Result) error {
		delivered <- r.EventID
		return nil
	}

	e.Enqueue(res("a"))
	e.Enqueue(res("b"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	for _, want := range []string{"a", "b"} {
		select {
		case got := <-delivered:
			if got != want {
				t.Errorf("delivered %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestRun_DiscardsOnPermanentError(t *testing.T) {
	e := New(config.ExportConfig{Endpoint: "http://unused", BufferSize: 8})

	var calls atomic.Int32
	done := make(chan struct{}, 4)
	e.postFn = func(ctx context.Context, r *pipeline.Result) error {
		calls.Add(1)
		done <- struct{}{}
		return &permanentError{status: http.StatusBadRequest}
	}

	e.Enqueue(res("rejected"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the first attempt")
	}

	// The result must not be retried: the buffer stays empty and no further
	// attempts happen.
	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("post attempts = %d, want 1 (no retry on permanent error)", got)
	}
	if got := len(e.buf); got != 0 {
		t.Errorf("buffer length = %d, want 0", got)
	}
}

func TestRun_RetriesTransientError(t *testing.T) {
	e := New(config.ExportConfig{Endpoint: "http://unused", BufferSize: 8})

	var calls atomic.Int32
	delivered := make(chan struct{})
	e.postFn = func(ctx context.Context, r *pipeline.Result) error {
		if calls.Add(1) == 1 {
			return errors.New("connection refused")
		}
		close(delivered)
		return nil
	}

	e.Enqueue(res("retry-me"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	// The first attempt fails, the result goes back into the buffer, and
	// after the initial backoff the retry succeeds.
	select {
	case <-delivered:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the retry to deliver")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("post attempts = %d, want 2", got)
	}
}

func TestPost_StatusHandling(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   bool
		permanent bool
	}{
		{"accepted", http.StatusOK, false, false},
		{"created", http.StatusCreated, false, false},
		{"client error is permanent", http.StatusUnprocessableEntity, true, true},
		{"server error is transient", http.StatusBadGateway, true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotAuth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			t.Setenv("EXPORT_TOKEN", "tok")
			e := New(config.ExportConfig{
				Endpoint:   srv.URL,
				BufferSize: 1,
				Auth:       config.ExportAuth{Mode: "bearer", TokenEnv: "EXPORT_TOKEN"},
			})

			err := e.postFn(context.Background(), res("evt"))
			if (err != nil) != tc.wantErr {
				t.Fatalf("post error = %v, wantErr %v", err, tc.wantErr)
			}
			var perm *permanentError
			if got := errors.As(err, &perm); got != tc.permanent {
				t.Errorf("permanent = %v, want %v", got, tc.permanent)
			}
			if gotAuth != "Bearer tok" {
				t.Errorf("Authorization = %q, want Bearer tok", gotAuth)
			}
		})
	}
}
