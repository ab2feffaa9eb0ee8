package coursestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/jpalmerr/coursestore/courses"
	"github.com/jpalmerr/coursestore/internal/metrics"
	"github.com/jpalmerr/coursestore/internal/server"
	"github.com/jpalmerr/coursestore/internal/transport"
	"github.com/jpalmerr/coursestore/loading"
	"github.com/jpalmerr/coursestore/messages"
	"github.com/jpalmerr/coursestore/stream"
)

const (
	defaultPort    = 8080
	defaultTimeout = transport.DefaultTimeout
)

// App wires the course store, loading tracker and message bus together and
// serves them over HTTP.
//
// App is created using [New] with functional options. The store begins its
// initial load as soon as the App is created. [App.Start] serves the HTTP
// bridge until its context is cancelled.
//
// The typical lifecycle is:
//
//	app, err := coursestore.New(coursestore.WithAPIURL("http://localhost:9000"))
//	if err != nil {
//	    slog.Error("failed to create coursestore", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	app.Start(ctx) // blocks until context cancelled
type App struct {
	apiURL  string
	port    int
	timeout time.Duration
	logger  *slog.Logger

	client  *transport.Client // nil when a custom transport is used
	tracker *loading.Tracker
	bus     *messages.Bus
	store   *courses.Store

	callbackSubs []stream.Subscription

	mu       sync.Mutex
	addr     net.Addr
	closeOne sync.Once
}

// New creates a new [App] with the given options and starts the initial
// course load in the background.
//
// Either [WithAPIURL] or [WithTransport] is required. Other options have
// sensible defaults:
//   - Port: 8080
//   - Request timeout: 10 seconds
//
// Returns an error if no course source is configured or if any option is
// invalid. Call [App.Close] (or run [App.Start] to completion) to release
// the store.
func New(opts ...Option) (*App, error) {
	cfg := &appConfig{
		port:    defaultPort,
		timeout: defaultTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.apiURL == "" && cfg.transport == nil {
		return nil, errors.New("an API URL or transport is required")
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{
		apiURL:  cfg.apiURL,
		port:    cfg.port,
		timeout: cfg.timeout,
		logger:  logger,
		tracker: loading.NewTracker(),
		bus:     messages.NewBus(),
	}

	src := cfg.transport
	if src == nil {
		client, err := transport.NewClient(cfg.apiURL, maps.Clone(cfg.headers), cfg.timeout)
		if err != nil {
			return nil, err
		}
		app.client = client
		src = client
	}

	metrics.Register()

	// callbacks attach before the store exists so they observe the initial load
	for _, cb := range cfg.errorCallbacks {
		sub := app.bus.Errors().Subscribe(func(batch []string) {
			invokeCallbackSafe(cb, slices.Clone(batch), logger)
		})
		app.callbackSubs = append(app.callbackSubs, sub)
	}

	app.store = courses.NewStore(context.Background(), src, app.tracker, app.bus,
		courses.WithLogger(logger))

	return app, nil
}

// Start serves the HTTP bridge until ctx is cancelled.
//
// Start is a blocking call. Courses, loading state and error batches are
// available over REST, Server-Sent Events and WebSocket on the configured
// port, together with Prometheus metrics at /metrics.
//
// On return the App is closed. Returns nil on graceful shutdown and an error
// if the HTTP server fails to start.
func (a *App) Start(ctx context.Context) error {
	// check if context already cancelled
	if ctx.Err() != nil {
		a.Close()
		return nil
	}

	a.logger.Info("coursestore starting", "api_url", a.apiURL, "timeout", a.timeout.String())

	srv := server.NewServer(a.store, a.tracker, a.bus, a.port, a.logger)
	if err := srv.Start(ctx); err != nil {
		a.Close()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	a.mu.Lock()
	a.addr = srv.Addr()
	a.mu.Unlock()

	a.logger.Info("api available", "url", fmt.Sprintf("http://localhost:%d/api/courses", a.port))

	<-ctx.Done()
	a.mu.Lock()
	a.addr = nil
	a.mu.Unlock()
	a.Close()
	a.logger.Info("coursestore stopped")
	return nil
}

// Close cancels in-flight course API calls and detaches error callbacks.
// The cache stays readable. Safe to call multiple times.
func (a *App) Close() {
	a.closeOne.Do(func() {
		a.store.Close()
		for _, sub := range a.callbackSubs {
			sub.Unsubscribe()
		}
		a.client.Close()
	})
}

// Store returns the course store.
func (a *App) Store() *courses.Store {
	return a.store
}

// Loading returns the shared loading tracker.
func (a *App) Loading() *loading.Tracker {
	return a.tracker
}

// Messages returns the shared message bus.
func (a *App) Messages() *messages.Bus {
	return a.bus
}

// Port returns the configured HTTP port.
func (a *App) Port() int {
	return a.port
}

// Timeout returns the configured per-request timeout.
func (a *App) Timeout() time.Duration {
	return a.timeout
}

// Addr returns the address the HTTP server listens on, or nil when the
// server is not running.
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// invokeCallbackSafe calls an error callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func([]string), batch []string, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("error callback panicked",
				"panic", r,
				"batch_size", len(batch),
			)
		}
	}()
	cb(batch)
}
