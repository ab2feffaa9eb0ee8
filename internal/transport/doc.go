// Package transport implements the remote course API over HTTP.
//
// This package is internal to coursestore. [Client] satisfies
// courses.Transport and is wired in by the root package; users configure it
// through coursestore options rather than constructing it directly.
//
// Endpoints, relative to the configured base URL:
//
//   - GET  /api/courses       returns {"payload": [course...]}
//   - PUT  /api/courses/{id}  applies a partial update; the response is ignored
package transport
