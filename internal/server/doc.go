// Package server provides the HTTP bridge between the course store and its
// consumers.
//
// This package is internal to coursestore and handles all HTTP concerns:
//
//   - REST API: "/api/courses" for the cache snapshot (optionally filtered by
//     category), "PUT /api/courses/{id}" for saves, "/api/busy" for the
//     loading flag
//   - Server-Sent Events: "/api/sse" streams the courses, loading and errors
//     streams as named events
//   - WebSocket: "/ws" streams the same events as JSON envelopes
//   - Metrics: "/metrics" exposes the Prometheus registry
//
// Every stream replays its current value when a client connects. Dismissing
// errors is a client-side concern; the server never clears the message bus.
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
