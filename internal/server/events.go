package server

import (
	"context"

	"github.com/jpalmerr/coursestore/courses"
	"github.com/jpalmerr/coursestore/stream"
)

// Event names shared by the SSE and WebSocket endpoints.
const (
	EventCourses = "courses"
	EventLoading = "loading"
	EventErrors  = "errors"
)

// feedBufferSize is the per-stream buffer of a client feed. Older values are
// dropped when a client falls behind.
const feedBufferSize = 8

// Event is one value of a store stream as sent to clients.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// busyResponse is the payload of loading events and GET /api/busy.
type busyResponse struct {
	Busy bool `json:"busy"`
}

// feed merges the three store streams for one client.
type feed struct {
	courses <-chan []courses.Course
	busy    <-chan bool
	errors  <-chan []string
	cancels []func()
}

// subscribe opens a feed. Each stream's current value is queued immediately.
func (s *Server) subscribe() *feed {
	f := &feed{}

	var cancel func()
	f.courses, cancel = stream.Channel(s.store.Courses(), feedBufferSize)
	f.cancels = append(f.cancels, cancel)

	f.busy, cancel = stream.Channel(s.loading.Busy(), feedBufferSize)
	f.cancels = append(f.cancels, cancel)

	f.errors, cancel = stream.Channel(s.messages.Errors(), feedBufferSize)
	f.cancels = append(f.cancels, cancel)

	return f
}

// next blocks until a stream produces a value or ctx is done. It returns
// false once ctx is done or the feed is closed.
func (f *feed) next(ctx context.Context) (Event, bool) {
	select {
	case v, ok := <-f.courses:
		if !ok {
			return Event{}, false
		}
		if v == nil {
			v = []courses.Course{}
		}
		return Event{Event: EventCourses, Data: v}, true

	case v, ok := <-f.busy:
		if !ok {
			return Event{}, false
		}
		return Event{Event: EventLoading, Data: busyResponse{Busy: v}}, true

	case v, ok := <-f.errors:
		if !ok {
			return Event{}, false
		}
		return Event{Event: EventErrors, Data: v}, true

	case <-ctx.Done():
		return Event{}, false
	}
}

// close unsubscribes from every stream.
func (f *feed) close() {
	for _, cancel := range f.cancels {
		cancel()
	}
}
