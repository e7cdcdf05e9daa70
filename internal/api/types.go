package api

import "github.com/mvakit/mvakit/internal/pipeline"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status      string   `json:"status"`
	StageCount  int      `json:"stage_count"`
	ResultCount int      `json:"result_count"`
	AlertCount  int      `json:"alert_count"`
	Kinds       []string `json:"kinds"`
}

// ResultResponse is one stored result in GET /api/v1/results or
// GET /api/v1/results/{id}.
type ResultResponse struct {
	*pipeline.Result
	StoredAt string `json:"stored_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
