// Package coursestore keeps an in-memory, observable copy of a remote course
// collection and serves it to consumers in real time.
//
// The library is built around three shared reactive components:
//
//   - [courses.Store]: the course cache, derived category views and
//     optimistic saves
//   - [loading.Tracker]: a single busy flag raised while remote calls run
//   - [messages.Bus]: user-visible error batches
//
// Each exposes a replaying multicast stream (package stream): subscribers
// receive the current value immediately and every later value in order.
//
// # Quick Start
//
//	app, _ := coursestore.New(coursestore.WithAPIURL("http://localhost:9000"))
//
//	sub := app.Store().FilterByCategory("BEGINNER").Subscribe(func(list []courses.Course) {
//	    fmt.Println(len(list), "beginner courses")
//	})
//	defer sub.Unsubscribe()
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	app.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// coursestore uses the functional options pattern for configuration:
//
//	app, err := coursestore.New(
//	    coursestore.WithAPIURL(apiURL),
//	    coursestore.WithHeaders("Authorization", "Bearer token"),
//	    coursestore.WithTimeout(5 * time.Second),
//	    coursestore.WithPort(9090),
//	    coursestore.WithErrorCallback(func(batch []string) { ... }),
//	)
//
// # Saves
//
// [courses.Store.Save] publishes the merged course before the remote update
// is sent. A failed update is reported on the message bus and to the caller,
// and the optimistic value stays in the cache until the next successful
// load.
//
// # Architecture
//
//   - internal/transport: HTTP client for the remote course API
//   - internal/server: REST, Server-Sent Events and WebSocket bridge
//   - internal/metrics: Prometheus collectors
//   - config: YAML configuration for the coursestore binary
//
// The internal packages are not part of the public API and may change
// without notice.
package coursestore
