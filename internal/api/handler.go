package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mvakit/mvakit/internal/config"
	"github.com/mvakit/mvakit/internal/monitor"
	"github.com/mvakit/mvakit/internal/pipeline"
	"github.com/mvakit/mvakit/internal/proc"
	"github.com/mvakit/mvakit/internal/store"
)

// Enqueuer hands a scored result to the exporter. Nil disables export.
type Enqueuer interface {
	Enqueue(res *pipeline.Result)
}

// Deps wires the handler to the rest of the service. Computer is a getter
// so a config hot-reload can swap the pipeline without restarting the
// listener.
type Deps struct {
	Computer func() *pipeline.Computer
	Store    *store.Store
	Monitor  *monitor.Engine
	Export   Enqueuer
	Auth     config.AuthConfig
	Now      func() time.Time // defaults to time.Now
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	deps Deps
	mux  *http.ServeMux
}

// New creates a Handler and registers all routes. Every route sits behind
// the API-key middleware when auth is configured.
func New(deps Deps) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	h := &Handler{deps: deps, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/score", h.score)
	h.mux.HandleFunc("/api/v1/stages", h.stages)
	h.mux.HandleFunc("/api/v1/results", h.listResults)
	h.mux.HandleFunc("/api/v1/results/", h.getResult) // subtree — extracts {id}
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)

	return requireAPIKey(deps.Auth, h.mux)
}

// requireAPIKey rejects requests without the expected key header. With mode
// "none" or an unconfigured key it passes everything through.
func requireAPIKey(auth config.AuthConfig, next http.Handler) http.Handler {
	key := auth.Key()
	if auth.Mode != "apikey" || key == "" {
		return next
	}
	header := auth.EffectiveHeader()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(header) != key {
			jsonErr(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- route handlers ---------------------------------------------------------

// score handles POST /api/v1/score — evaluate one event and return its
// result. Abstention is a normal outcome and still returns 200.
func (h *Handler) score(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var ev pipeline.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid event payload: "+err.Error())
		return
	}
	if ev.ID == "" {
		jsonErr(w, http.StatusBadRequest, "event id is required")
		return
	}

	comp := h.deps.Computer()
	if comp == nil {
		jsonErr(w, http.StatusServiceUnavailable, "pipeline not configured")
		return
	}

	now := h.deps.Now()
	res := comp.Evaluate(&ev, now)

	h.deps.Store.Put(res)
	if h.deps.Monitor != nil {
		h.deps.Monitor.Observe(res, now)
	}
	if h.deps.Export != nil {
		h.deps.Export.Enqueue(res)
	}

	jsonResp(w, http.StatusOK, res)
}

// stages handles GET /api/v1/stages — the configured stages in order.
func (h *Handler) stages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	comp := h.deps.Computer()
	if comp == nil {
		jsonResp(w, http.StatusOK, []pipeline.StageInfo{})
		return
	}
	jsonResp(w, http.StatusOK, comp.Stages())
}

// listResults handles GET /api/v1/results — all live results, newest first.
func (h *Handler) listResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.deps.Store.List()
	out := make([]ResultResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toResultResponse(e))
	}
	jsonResp(w, http.StatusOK, out)
}

// getResult handles GET /api/v1/results/{id} — a single live result.
func (h *Handler) getResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/results/")
	if id == "" {
		h.listResults(w, r)
		return
	}

	e, ok := h.deps.Store.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "result not found")
		return
	}
	// Exclude stale entries, treating them as not found.
	if h.deps.Now().Sub(e.UpdatedAt) > h.deps.Store.TTL() {
		jsonErr(w, http.StatusNotFound, "result not found")
		return
	}

	jsonResp(w, http.StatusOK, toResultResponse(e))
}

// alerts handles GET /api/v1/alerts — firing and recently resolved alerts.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if h.deps.Monitor == nil {
		jsonResp(w, http.StatusOK, []*monitor.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.deps.Monitor.Active())
}

// health handles GET /api/v1/health — liveness plus a coarse inventory.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := HealthResponse{
		Status:      "ok",
		ResultCount: h.deps.Store.Count(),
		Kinds:       proc.Kinds(),
	}
	if comp := h.deps.Computer(); comp != nil {
		resp.StageCount = len(comp.Stages())
	} else {
		resp.Status = "unconfigured"
	}
	if h.deps.Monitor != nil {
		resp.AlertCount = len(h.deps.Monitor.Active())
	}
	jsonResp(w, http.StatusOK, resp)
}

// --- helpers ----------------------------------------------------------------

func toResultResponse(e *store.Entry) ResultResponse {
	return ResultResponse{
		Result:   e.Result,
		StoredAt: e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func jsonResp(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, status int, msg string) {
	jsonResp(w, status, errorResponse{Error: msg})
}
