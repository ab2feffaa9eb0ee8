// Package mockapi serves an in-memory course API for demos and manual
// testing of coursestore.
//
// GET /api/courses returns {"payload": [...]}; PUT /api/courses/{id}
// shallow-merges the JSON body into the stored course.
package mockapi

import (
	"encoding/json"
	"log/slog"
	"maps"
	"math/rand"
	"net/http"
	"slices"
	"sync"
	"time"
)

// Seed is the collection a new Server starts with.
var Seed = []map[string]any{
	{"id": "1", "category": "BEGINNER", "seqNo": 2, "description": "Angular for Beginners", "lessonsCount": 10},
	{"id": "2", "category": "BEGINNER", "seqNo": 1, "description": "RxJs In Practice", "lessonsCount": 18},
	{"id": "3", "category": "ADVANCED", "seqNo": 1, "description": "NgRx In Depth", "lessonsCount": 12},
	{"id": "4", "category": "ADVANCED", "seqNo": 2, "description": "Angular Security", "lessonsCount": 9},
}

// Server is the in-memory API. The zero value is not usable; call New.
type Server struct {
	mu      sync.Mutex
	courses []map[string]any

	// FailureRate is the probability (0..1) that a request fails with 500.
	FailureRate float64

	// MaxLatency bounds the random delay added to each request.
	MaxLatency time.Duration
}

// New returns a Server holding a copy of Seed.
func New() *Server {
	s := &Server{}
	for _, c := range Seed {
		s.courses = append(s.courses, maps.Clone(c))
	}
	return s
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/courses", s.handleList)
	mux.HandleFunc("PUT /api/courses/{id}", s.handleUpdate)
	return mux
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if s.delayAndMaybeFail(w) {
		return
	}

	s.mu.Lock()
	payload := make([]map[string]any, 0, len(s.courses))
	for _, c := range s.courses {
		payload = append(payload, maps.Clone(c))
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"payload": payload})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if s.delayAndMaybeFail(w) {
		return
	}

	var changes map[string]any
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.courses, func(c map[string]any) bool { return c["id"] == id })
	if i == -1 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "course not found"})
		return
	}
	for k, v := range changes {
		if k == "id" {
			continue
		}
		s.courses[i][k] = v
	}
	slog.Info("course updated", "id", id, "fields", len(changes))

	writeJSON(w, http.StatusOK, s.courses[i])
}

// delayAndMaybeFail simulates latency and injected failures. It reports
// whether the response has been written.
func (s *Server) delayAndMaybeFail(w http.ResponseWriter) bool {
	if s.MaxLatency > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(s.MaxLatency))))
	}
	if s.FailureRate > 0 && rand.Float64() < s.FailureRate {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "injected failure"})
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
