package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteProblem(t *testing.T) {
	w := httptest.NewRecorder()

	WriteProblem(w, Problem{
		Type:     ProblemTypeNotFound,
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   "audit entry xyz not found",
		Instance: "/api/v1/audit/xyz",
	})

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content-type = %q, want %q", ct, "application/problem+json")
	}

	var p Problem
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if p.Type != ProblemTypeNotFound {
		t.Errorf("type = %q, want %q", p.Type, ProblemTypeNotFound)
	}
	if p.Title != "Not Found" {
		t.Errorf("title = %q, want %q", p.Title, "Not Found")
	}
	if p.Status != 404 {
		t.Errorf("status = %d, want 404", p.Status)
	}
	if p.Detail != "audit entry xyz not found" {
		t.Errorf("detail = %q, want %q", p.Detail, "audit entry xyz not found")
	}
	if p.Instance != "/api/v1/audit/xyz" {
		t.Errorf("instance = %q, want %q", p.Instance, "/api/v1/audit/xyz")
	}
}

func TestProblemHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, string, string)
		status int
		typ    string
		title  string
	}{
		{"not found", NotFound, http.StatusNotFound, ProblemTypeNotFound, "Not Found"},
		{"bad request", BadRequest, http.StatusBadRequest, ProblemTypeBadRequest, "Bad Request"},
		{"internal", InternalError, http.StatusInternalServerError, ProblemTypeInternal, "Internal Server Error"},
		{"rate limited", RateLimited, http.StatusTooManyRequests, ProblemTypeRateLimited, "Too Many Requests"},
		{"unavailable", Unavailable, http.StatusServiceUnavailable, ProblemTypeUnavailable, "Service Unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w, "console session limit reached", "/ws")

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			var p Problem
			if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			want := Problem{Type: tt.typ, Title: tt.title, Status: tt.status, Detail: "console session limit reached", Instance: "/ws"}
			if p != want {
				t.Errorf("problem = %+v, want %+v", p, want)
			}
		})
	}
}

func TestWriteProblem_OmitsEmptyOptionalFields(t *testing.T) {
	w := httptest.NewRecorder()

	WriteProblem(w, Problem{
		Type:   ProblemTypeInternal,
		Title:  "Internal Server Error",
		Status: 500,
	})

	var raw map[string]interface{}
	json.NewDecoder(w.Body).Decode(&raw)

	if _, ok := raw["detail"]; ok {
		t.Error("expected detail to be omitted when empty")
	}
	if _, ok := raw["instance"]; ok {
		t.Error("expected instance to be omitted when empty")
	}
}
