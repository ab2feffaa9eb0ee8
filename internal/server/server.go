package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jpalmerr/coursestore/courses"
	"github.com/jpalmerr/coursestore/internal/metrics"
	"github.com/jpalmerr/coursestore/stream"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// maxRequestBodySize limits PUT bodies.
	maxRequestBodySize = 1 << 20 // 1MB
)

// CourseStore is the part of courses.Store the server uses.
type CourseStore interface {
	Courses() stream.Stream[[]courses.Course]
	Snapshot() []courses.Course
	Save(ctx context.Context, id string, changes courses.Changes) (courses.Course, bool, error)
}

// BusySource exposes the shared loading flag.
type BusySource interface {
	Busy() stream.Stream[bool]
	IsBusy() bool
}

// ErrorSource exposes the message bus error stream.
type ErrorSource interface {
	Errors() stream.Stream[[]string]
}

// Server handles HTTP requests for the course API bridge.
//
// Server provides these endpoints:
//   - GET /api/courses: current cache, optionally ?category=C
//   - PUT /api/courses/{id}: optimistic save of one course
//   - GET /api/busy: current loading flag
//   - GET /api/sse: Server-Sent Events stream of all three streams
//   - GET /ws: WebSocket stream of all three streams
//   - GET /metrics: Prometheus metrics
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store    CourseStore
	loading  BusySource
	messages ErrorSource
	port     int
	logger   *slog.Logger
	hub      *hub

	mu         sync.Mutex
	httpServer *http.Server
	addr       net.Addr
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - st: the course cache
//   - busy: the loading tracker
//   - errs: the message bus
//   - port: TCP port to listen on (0 picks a free port)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(st CourseStore, busy BusySource, errs ErrorSource, port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:    st,
		loading:  busy,
		messages: errs,
		port:     port,
		logger:   logger,
	}
	s.hub = newHub(s)
	return s
}

// Handler returns the HTTP handler serving every endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/courses", s.handleCourses)
	mux.HandleFunc("PUT /api/courses/{id}", s.handleSave)
	mux.HandleFunc("GET /api/busy", s.handleBusy)
	mux.HandleFunc("GET /api/sse", s.handleSSE)
	mux.Handle("GET /ws", s.hub)
	mux.Handle("GET /metrics", metrics.Handler())

	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it closes WebSocket clients and initiates a
// graceful shutdown with a 5-second timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	httpServer := &http.Server{
		Handler: s.Handler(),
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = httpServer
	s.addr = ln.Addr()
	s.mu.Unlock()

	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		s.hub.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the address the server listens on, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// handleCourses returns the cache, or the category view when ?category is set.
func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	list := s.store.Snapshot()

	query := r.URL.Query()
	if query.Has("category") {
		list = courses.InCategory(list, query.Get("category"))
	}
	if list == nil {
		list = []courses.Course{}
	}

	w.Header().Set("Cache-Control", "no-cache")
	s.writeJSON(w, http.StatusOK, list)
}

// handleSave applies a JSON object of changes to one cached course.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var changes courses.Changes
	if err := dec.Decode(&changes); err != nil || changes == nil {
		s.writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	// the cache already holds the optimistic value; a client hanging up must
	// not abort the remote update
	course, ok, err := s.store.Save(context.WithoutCancel(r.Context()), id, changes)
	switch {
	case errors.Is(err, courses.ErrInvalidChanges):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case !ok:
		s.writeError(w, http.StatusNotFound, "course not found")
		return
	case err != nil:
		// only the generic message leaves the process
		msg := courses.SaveFailedMessage
		var storeErr *courses.Error
		if errors.As(err, &storeErr) {
			msg = storeErr.Message
		}
		s.writeError(w, http.StatusBadGateway, msg)
		return
	}

	s.writeJSON(w, http.StatusOK, course)
}

// handleBusy returns the loading flag.
func (s *Server) handleBusy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	s.writeJSON(w, http.StatusOK, busyResponse{Busy: s.loading.IsBusy()})
}

// handleSSE streams store updates via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// check if flushing is supported
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(event string, data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	// set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// the feed replays the current value of each stream
	f := s.subscribe()
	defer f.close()

	for {
		// request context is derived from server context via BaseContext,
		// so this ends on both client disconnect AND server shutdown
		ev, ok := f.next(r.Context())
		if !ok {
			return
		}

		data, err := json.Marshal(ev.Data)
		if err != nil {
			s.logger.Error("failed to encode sse event", "event", ev.Event, "error", err)
			continue
		}
		if err := writeAndFlush(ev.Event, data); err != nil {
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
