package problems

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// Type URIs for machine-readable problem categories.
const (
	TypeValidation = "https://skillsight.app/problems/validation-error"
	TypeNotFound   = "https://skillsight.app/problems/not-found"
	TypeConflict   = "https://skillsight.app/problems/conflict"
	TypeInternal   = "https://skillsight.app/problems/internal-error"
)

// Problem is an RFC 7807 problem-details payload.
type Problem struct {
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Status    int     `json:"status"`
	Detail    string  `json:"detail,omitempty"`
	Instance  *string `json:"instance,omitempty"`
	RequestID *string `json:"requestId,omitempty"`
}

// Write serializes the problem with the application/problem+json media type.
// The request id from chi middleware is attached when present.
func Write(w http.ResponseWriter, r *http.Request, p Problem) {
	if p.RequestID == nil {
		if requestID := middleware.GetReqID(r.Context()); requestID != "" {
			p.RequestID = &requestID
		}
	}
	if p.Instance == nil {
		instance := r.URL.Path
		p.Instance = &instance
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// Validation writes a 400 validation problem.
func Validation(w http.ResponseWriter, r *http.Request, detail string) {
	Write(w, r, Problem{Type: TypeValidation, Title: "Invalid request", Status: http.StatusBadRequest, Detail: detail})
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Write(w, r, Problem{Type: TypeNotFound, Title: "Not found", Status: http.StatusNotFound, Detail: detail})
}

// Conflict writes a 409 problem.
func Conflict(w http.ResponseWriter, r *http.Request, detail string) {
	Write(w, r, Problem{Type: TypeConflict, Title: "Conflict", Status: http.StatusConflict, Detail: detail})
}

// Internal writes a 500 problem without leaking the underlying error.
func Internal(w http.ResponseWriter, r *http.Request) {
	Write(w, r, Problem{Type: TypeInternal, Title: "Internal error", Status: http.StatusInternalServerError, Detail: "an unexpected error occurred"})
}
