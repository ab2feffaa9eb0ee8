package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// execute runs the root command with args and returns captured stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// writeConfigFile writes body to a temp config file and returns its path.
func writeConfigFile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "coursestore.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// fakeAPI serves a small course collection and records PUT bodies.
type fakeAPI struct {
	mu       sync.Mutex
	failSave bool
	updates  map[string]map[string]any
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()

	api := &fakeAPI{updates: make(map[string]map[string]any)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/courses", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"payload": []map[string]any{
			{"id": "c1", "category": "BEGINNER", "seqNo": 2, "description": "Angular Core"},
			{"id": "c2", "category": "BEGINNER", "seqNo": 1, "description": "RxJs In Practice"},
			{"id": "c3", "category": "ADVANCED", "seqNo": 1, "description": "NgRx"},
		}})
	})
	mux.HandleFunc("PUT /api/courses/{id}", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		if api.failSave {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var changes map[string]any
		_ = json.NewDecoder(r.Body).Decode(&changes)
		api.updates[r.PathValue("id")] = changes
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api, srv
}

func configFor(t *testing.T, apiURL string) string {
	t.Helper()
	return writeConfigFile(t, "api:\n  url: "+apiURL+"\nlog:\n  level: error\n")
}
