package server

import (
	"encoding/json"
	"net/http"
)

// Type URIs for the problem+json bodies LabTrack returns.
const (
	ProblemTypeNotFound    = "https://labtrack.dev/problems/not-found"
	ProblemTypeBadRequest  = "https://labtrack.dev/problems/bad-request"
	ProblemTypeInternal    = "https://labtrack.dev/problems/internal-error"
	ProblemTypeRateLimited = "https://labtrack.dev/problems/rate-limited"
	ProblemTypeUnavailable = "https://labtrack.dev/problems/unavailable"
)

// Problem is an RFC 7807 error body. Detail and Instance are optional.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// WriteProblem sends p with its own status code.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// problemWriter returns a helper that fills Type, Title and Status for one
// status code. Titles are the standard reason phrases.
func problemWriter(status int, typ string) func(w http.ResponseWriter, detail, instance string) {
	return func(w http.ResponseWriter, detail, instance string) {
		WriteProblem(w, Problem{
			Type:     typ,
			Title:    http.StatusText(status),
			Status:   status,
			Detail:   detail,
			Instance: instance,
		})
	}
}

// Helpers used by module handlers and the websocket upgrade path. Each takes
// a human-readable detail and the request path as instance.
var (
	NotFound      = problemWriter(http.StatusNotFound, ProblemTypeNotFound)
	BadRequest    = problemWriter(http.StatusBadRequest, ProblemTypeBadRequest)
	InternalError = problemWriter(http.StatusInternalServerError, ProblemTypeInternal)
	RateLimited   = problemWriter(http.StatusTooManyRequests, ProblemTypeRateLimited)
	Unavailable   = problemWriter(http.StatusServiceUnavailable, ProblemTypeUnavailable)
)
