package coursestore

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jpalmerr/coursestore/courses"
)

// appConfig holds mutable state during App construction.
type appConfig struct {
	apiURL         string
	headers        map[string]string
	timeout        time.Duration
	transport      courses.Transport
	port           int
	logger         *slog.Logger
	errorCallbacks []func([]string)
}

// Option is a function that configures an [App] instance during construction.
//
// Option implements the functional options pattern. Options return an error
// if validation fails.
type Option func(*appConfig) error

// WithAPIURL sets the base URL of the remote course API.
//
// The store fetches GET <url>/api/courses and saves with
// PUT <url>/api/courses/{id}. Either WithAPIURL or [WithTransport] is
// required.
//
// Example:
//
//	app, err := coursestore.New(
//	    coursestore.WithAPIURL("http://localhost:9000"),
//	)
//
// Returns an error if the URL is not an absolute http or https URL.
func WithAPIURL(rawURL string) Option {
	return func(cfg *appConfig) error {
		u, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("invalid API URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("API URL scheme must be http or https, got %q", u.Scheme)
		}
		if u.Host == "" {
			return errors.New("API URL must include a host")
		}
		cfg.apiURL = rawURL
		return nil
	}
}

// WithHeaders adds custom HTTP headers to every request made to the course
// API.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	app, err := coursestore.New(
//	    coursestore.WithAPIURL(apiURL),
//	    coursestore.WithHeaders("Authorization", "Bearer token123"),
//	)
func WithHeaders(keyValues ...string) Option {
	return func(cfg *appConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		if cfg.headers == nil {
			cfg.headers = make(map[string]string, len(keyValues)/2)
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout sets the per-request timeout for course API calls.
// Defaults to 10 seconds if not specified.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) Option {
	return func(cfg *appConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithTransport replaces the HTTP client with a custom [courses.Transport].
//
// Use this to back the store with something other than the HTTP course API,
// such as an in-process fake in tests. When set, [WithAPIURL],
// [WithHeaders] and [WithTimeout] are ignored.
//
// Returns an error if t is nil.
func WithTransport(t courses.Transport) Option {
	return func(cfg *appConfig) error {
		if t == nil {
			return errors.New("transport cannot be nil")
		}
		cfg.transport = t
		return nil
	}
}

// WithPort sets the HTTP port served by [App.Start].
//
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *appConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the App and everything it
// constructs. If not specified, [slog.Default] is used.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	app, err := coursestore.New(
//	    coursestore.WithAPIURL(apiURL),
//	    coursestore.WithLogger(logger),
//	)
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *appConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithErrorCallback registers a function called with every non-empty error
// batch published on the message bus, including the batch current at
// registration.
//
// Multiple callbacks may be registered; they execute in registration order.
//
// IMPORTANT: Callbacks must be non-blocking. They run on the goroutine that
// published the batch, which is usually a store operation. Panics within
// callbacks are recovered and logged.
//
// Example:
//
//	app, err := coursestore.New(
//	    coursestore.WithAPIURL(apiURL),
//	    coursestore.WithErrorCallback(func(batch []string) {
//	        log.Printf("ALERT: %v", batch)
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithErrorCallback(cb func([]string)) Option {
	return func(cfg *appConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.errorCallbacks = append(cfg.errorCallbacks, cb)
		return nil
	}
}
