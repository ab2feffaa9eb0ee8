package stream

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Stream is a source of values that any number of subscribers can observe.
type Stream[T any] interface {
	// Subscribe registers fn to receive values. The returned Subscription
	// stops delivery when unsubscribed.
	Subscribe(fn func(T)) Subscription
}

// Subscription represents a registered callback on a [Stream].
type Subscription interface {
	// Unsubscribe stops further deliveries. Safe to call multiple times.
	Unsubscribe()
}

// Subject is a multicast [Stream] with replay of the most recent value.
//
// A subscriber attaching at any time first receives the current value (if one
// has been produced) and then every later value, with nothing skipped or
// repeated in between. Subject is safe for concurrent use.
type Subject[T any] struct {
	mu       sync.Mutex
	value    T
	hasValue bool
	seq      uint64
	nextID   uint64
	subs     map[uint64]*subscriber[T]
	queue    []delivery[T]
	draining bool
}

type subscriber[T any] struct {
	fn func(T)

	// from is the sequence number covered by the replay; broadcasts at or
	// below it were produced before this subscriber attached.
	from uint64
}

// delivery is a queued value. A zero target broadcasts to all subscribers.
type delivery[T any] struct {
	value  T
	seq    uint64
	target uint64
}

// NewSubject creates a [Subject] seeded with an initial value, which is
// replayed to subscribers until the first call to [Subject.Next].
func NewSubject[T any](initial T) *Subject[T] {
	s := NewEmptySubject[T]()
	s.value = initial
	s.hasValue = true
	return s
}

// NewEmptySubject creates a [Subject] with no value. Subscribers receive
// nothing until the first call to [Subject.Next].
func NewEmptySubject[T any]() *Subject[T] {
	return &Subject[T]{
		subs: make(map[uint64]*subscriber[T]),
	}
}

// Next records v as the current value and delivers it to every subscriber.
//
// If another goroutine (or an enclosing callback) is already delivering, v is
// queued behind the pending values and Next returns without waiting.
func (s *Subject[T]) Next(v T) {
	s.mu.Lock()
	s.value = v
	s.hasValue = true
	s.seq++
	s.queue = append(s.queue, delivery[T]{value: v, seq: s.seq})
	s.mu.Unlock()

	s.drain()
}

// Update atomically derives the next value from the current one.
//
// f runs with the subject locked and must not call back into the subject.
// If f reports false nothing is emitted and the current value is kept.
// Update returns the resulting current value and whether it was emitted.
func (s *Subject[T]) Update(f func(current T) (T, bool)) (T, bool) {
	s.mu.Lock()
	next, ok := f(s.value)
	if !ok {
		cur := s.value
		s.mu.Unlock()
		return cur, false
	}
	s.value = next
	s.hasValue = true
	s.seq++
	s.queue = append(s.queue, delivery[T]{value: next, seq: s.seq})
	s.mu.Unlock()

	s.drain()
	return next, true
}

// Subscribe registers fn and replays the current value to it.
//
// A nil fn is ignored and yields a no-op subscription.
func (s *Subject[T]) Subscribe(fn func(T)) Subscription {
	if fn == nil {
		return noopSubscription{}
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = &subscriber[T]{fn: fn, from: s.seq}
	if s.hasValue {
		s.queue = append(s.queue, delivery[T]{value: s.value, seq: s.seq, target: id})
	}
	s.mu.Unlock()

	s.drain()
	return &subscription[T]{subject: s, id: id}
}

// Value returns the current value and whether one has been produced.
func (s *Subject[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.hasValue
}

// Len returns the number of active subscribers.
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// drain delivers queued values until the queue is empty. Only one goroutine
// drains at a time; everyone else just enqueues.
func (s *Subject[T]) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true

	for len(s.queue) > 0 {
		d := s.queue[0]
		s.queue[0] = delivery[T]{}
		s.queue = s.queue[1:]
		targets := s.targetsLocked(d)
		s.mu.Unlock()

		for _, id := range targets {
			// re-check: a callback earlier in this round may have unsubscribed it
			s.mu.Lock()
			sub, ok := s.subs[id]
			s.mu.Unlock()
			if ok {
				invokeSafe(sub.fn, d.value)
			}
		}

		s.mu.Lock()
	}

	s.queue = nil
	s.draining = false
	s.mu.Unlock()
}

// targetsLocked returns subscriber ids for d in subscription order.
// Caller must hold s.mu.
func (s *Subject[T]) targetsLocked(d delivery[T]) []uint64 {
	if d.target != 0 {
		if _, ok := s.subs[d.target]; ok {
			return []uint64{d.target}
		}
		return nil
	}

	ids := make([]uint64, 0, len(s.subs))
	for id, sub := range s.subs {
		if d.seq > sub.from {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (s *Subject[T]) remove(id uint64) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}

// invokeSafe calls a subscriber with panic recovery so one misbehaving
// subscriber cannot wedge delivery for the others.
func invokeSafe[T any](fn func(T), v T) {
	defer func() {
		if r := recover(); r != nil {
			slog.Default().Error("stream subscriber panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn(v)
}

type subscription[T any] struct {
	subject *Subject[T]
	id      uint64
	once    sync.Once
}

func (u *subscription[T]) Unsubscribe() {
	u.once.Do(func() { u.subject.remove(u.id) })
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}
