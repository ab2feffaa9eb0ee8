package coursestore

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jpalmerr/coursestore/courses"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubTransport implements courses.Transport without network access.
type stubTransport struct {
	payload  []courses.Course
	fetchErr error
	fetches  atomic.Int32
}

func (s *stubTransport) FetchAll(context.Context) (courses.Envelope, error) {
	s.fetches.Add(1)
	if s.fetchErr != nil {
		return courses.Envelope{}, s.fetchErr
	}
	return courses.Envelope{Payload: s.payload}, nil
}

func (s *stubTransport) Update(context.Context, string, courses.Changes) error {
	return nil
}

// courseAPI is an in-memory remote course API served over httptest.
type courseAPI struct {
	mu        sync.Mutex
	courses   []map[string]any
	failFetch bool
	failSave  bool
	puts      atomic.Int32
}

func newCourseAPI(t *testing.T) (*courseAPI, *httptest.Server) {
	t.Helper()

	api := &courseAPI{courses: []map[string]any{
		{"id": "c1", "category": "BEGINNER", "seqNo": 2, "description": "Angular Core"},
		{"id": "c2", "category": "BEGINNER", "seqNo": 1, "description": "RxJs In Practice"},
		{"id": "c3", "category": "ADVANCED", "seqNo": 1, "description": "NgRx"},
	}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/courses", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		if api.failFetch {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"payload": api.courses})
	})
	mux.HandleFunc("PUT /api/courses/{id}", func(w http.ResponseWriter, r *http.Request) {
		api.puts.Add(1)
		api.mu.Lock()
		defer api.mu.Unlock()
		if api.failSave {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var changes map[string]any
		if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, c := range api.courses {
			if c["id"] == r.PathValue("id") {
				for k, v := range changes {
					c[k] = v
				}
				_ = json.NewEncoder(w).Encode(c)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return api, ts
}

func (a *courseAPI) setFailFetch(v bool) {
	a.mu.Lock()
	a.failFetch = v
	a.mu.Unlock()
}

func (a *courseAPI) setFailSave(v bool) {
	a.mu.Lock()
	a.failSave = v
	a.mu.Unlock()
}
