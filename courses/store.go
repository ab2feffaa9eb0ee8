package courses

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jpalmerr/coursestore/internal/metrics"
	"github.com/jpalmerr/coursestore/loading"
	"github.com/jpalmerr/coursestore/messages"
	"github.com/jpalmerr/coursestore/stream"
)

// loadKey identifies the full-collection load for request deduplication.
const loadKey = "courses"

// Transport is the remote course API.
//
// Implementations own cancellation and timeouts beyond what the context
// passed in carries.
type Transport interface {
	// FetchAll returns the whole collection wrapped in an [Envelope].
	FetchAll(ctx context.Context) (Envelope, error)

	// Update sends a partial update for one course. Any response body is
	// discarded.
	Update(ctx context.Context, id string, changes Changes) error
}

// Option configures a [Store].
type Option func(*Store)

// WithLogger sets the logger used for diagnostics. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store owns the course cache.
//
// The cache is replaced wholesale by loads and element-wise by saves, each
// change producing a new snapshot on [Store.Courses]. Store is safe for
// concurrent use.
type Store struct {
	transport Transport
	tracker   *loading.Tracker
	bus       *messages.Bus
	logger    *slog.Logger

	// ctx bounds every transport call; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	courses *stream.Subject[[]Course]

	// group collapses concurrent loads into one transport call. The guard
	// is released once the call settles.
	group singleflight.Group

	// initial holds the settled result of the construction-time load.
	initial *pendingLoad
}

// pendingLoad is a one-shot shared result.
type pendingLoad struct {
	done    chan struct{}
	courses []Course
	err     error
}

// NewStore creates a [Store] with an empty cache and starts the initial
// load in the background.
//
// The load runs under ctx; cancelling ctx (or calling [Store.Close]) aborts
// in-flight transport calls. If ctx is nil, context.Background() is used.
func NewStore(ctx context.Context, transport Transport, tracker *loading.Tracker, bus *messages.Bus, opts ...Option) *Store {
	if ctx == nil {
		ctx = context.Background()
	}

	s := &Store{
		transport: transport,
		tracker:   tracker,
		bus:       bus,
		logger:    slog.Default(),
		courses:   stream.NewSubject([]Course{}),
		initial:   &pendingLoad{done: make(chan struct{})},
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, opt := range opts {
		opt(s)
	}

	go func() {
		defer close(s.initial.done)
		v, err, _ := s.group.Do(loadKey, s.load)
		s.initial.courses, _ = v.([]Course)
		s.initial.err = err
	}()

	return s
}

// Courses returns the cache stream. Subscribers receive the current snapshot
// immediately and every later snapshot in order.
func (s *Store) Courses() stream.Stream[[]Course] {
	return s.courses
}

// Snapshot returns the current cache.
func (s *Store) Snapshot() []Course {
	courses, _ := s.courses.Value()
	return slices.Clone(courses)
}

// FilterByCategory returns a stream of the cached courses in category,
// ordered by SeqNo (stable on ties). It is recomputed from every cache
// snapshot and holds no state of its own.
func (s *Store) FilterByCategory(category string) stream.Stream[[]Course] {
	return stream.Map[[]Course, []Course](s.courses, func(courses []Course) []Course {
		return InCategory(courses, category)
	})
}

// Loaded waits for the construction-time load and returns its result.
//
// Every caller shares that one load: callers arriving before it completes
// wait for the same transport call, and callers arriving afterwards get the
// settled result without a new fetch. ctx only bounds the wait. The returned
// slice is the caller's own copy.
func (s *Store) Loaded(ctx context.Context) ([]Course, error) {
	select {
	case <-s.initial.done:
		return slices.Clone(s.initial.courses), s.initial.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reload fetches the whole collection again and replaces the cache.
//
// Concurrent calls, including one racing the initial load, join a single
// in-flight transport call. ctx only bounds the wait; the shared call runs
// under the store's context so one caller giving up does not fail the rest.
func (s *Store) Reload(ctx context.Context) ([]Course, error) {
	ch := s.group.DoChan(loadKey, s.load)
	select {
	case res := <-ch:
		courses, _ := res.Val.([]Course)
		return slices.Clone(courses), res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Save applies changes to the cached course id and sends them to the remote
// API.
//
// The merged course is published on [Store.Courses] before the transport call
// is issued. If the remote update fails, a generic message is published to
// the message bus and an [Error] matching [ErrSaveFailed] is returned; the
// cache keeps the optimistic value. A successful response is discarded.
//
// If id is not cached, Save changes nothing, sends nothing and returns
// ok == false with a nil error. Wrongly typed changes return an error
// wrapping [ErrInvalidChanges] before anything is applied.
func (s *Store) Save(ctx context.Context, id string, changes Changes) (course Course, ok bool, err error) {
	var (
		merged   Course
		found    bool
		applyErr error
	)
	s.courses.Update(func(current []Course) ([]Course, bool) {
		i := slices.IndexFunc(current, func(c Course) bool { return c.ID == id })
		if i == -1 {
			return current, false
		}
		found = true

		merged, applyErr = current[i].Apply(changes)
		if applyErr != nil {
			return current, false
		}

		next := slices.Clone(current)
		next[i] = merged
		return next, true
	})

	if !found {
		metrics.RecordSave(metrics.OutcomeNotFound, 0)
		s.logger.Debug("save skipped, course not cached", "course_id", id)
		return Course{}, false, nil
	}
	if applyErr != nil {
		metrics.RecordSave(metrics.OutcomeInvalid, 0)
		return Course{}, true, applyErr
	}

	// abort the remote call on Close as well as on caller cancellation
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	start := time.Now()
	err = s.tracker.Track(ctx, func(ctx context.Context) error {
		return s.transport.Update(ctx, id, changes)
	})
	if err != nil {
		metrics.RecordSave(metrics.OutcomeFailure, time.Since(start))
		return merged, true, s.fail(KindSave, id, err)
	}

	metrics.RecordSave(metrics.OutcomeSuccess, time.Since(start))
	s.logger.Debug("course saved", "course_id", id, "latency_ms", time.Since(start).Milliseconds())
	return merged, true, nil
}

// Close cancels in-flight transport calls. The cache stays readable.
func (s *Store) Close() {
	s.cancel()
}

// load performs one busy-tracked fetch of the whole collection. It is only
// called through s.group.
func (s *Store) load() (any, error) {
	return loading.ShowLoaderUntilCompleted[[]Course](s.tracker, s.fetchAll)(s.ctx)
}

func (s *Store) fetchAll(ctx context.Context) ([]Course, error) {
	start := time.Now()

	env, err := s.transport.FetchAll(ctx)
	if err != nil {
		metrics.RecordLoad(metrics.OutcomeFailure, time.Since(start))
		return nil, s.fail(KindLoad, "", err)
	}

	courses := s.dedupe(env.Payload)
	s.courses.Next(courses)

	metrics.RecordLoad(metrics.OutcomeSuccess, time.Since(start))
	s.logger.Debug("courses loaded", "count", len(courses), "latency_ms", time.Since(start).Milliseconds())
	return courses, nil
}

// dedupe keeps the first course for each id.
func (s *Store) dedupe(payload []Course) []Course {
	out := make([]Course, 0, len(payload))
	seen := make(map[string]struct{}, len(payload))
	for _, c := range payload {
		if _, dup := seen[c.ID]; dup {
			s.logger.Warn("duplicate course id in payload, keeping first", "course_id", c.ID)
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// fail publishes the generic message for kind and records the cause on the
// log under a fresh correlation id.
func (s *Store) fail(kind Kind, courseID string, cause error) *Error {
	e := &Error{
		Kind:          kind,
		Message:       messageFor(kind),
		CourseID:      courseID,
		CorrelationID: uuid.NewString(),
		Cause:         cause,
	}

	s.bus.ShowErrors(e.Message)

	attrs := []any{
		"kind", string(kind),
		"correlation_id", e.CorrelationID,
		"error", cause.Error(),
	}
	if courseID != "" {
		attrs = append(attrs, "course_id", courseID)
	}
	s.logger.Error(e.Message, attrs...)

	return e
}
