package stream

// Map returns a [Stream] that applies f to every value of src.
//
// The derived stream keeps no state: each subscriber subscribes to src
// directly and f runs once per upstream value per subscriber. f must be pure.
func Map[T, U any](src Stream[T], f func(T) U) Stream[U] {
	return mapped[T, U]{src: src, f: f}
}

// Filter returns a [Stream] that forwards only the values of src for which
// pred returns true.
func Filter[T any](src Stream[T], pred func(T) bool) Stream[T] {
	return filtered[T]{src: src, pred: pred}
}

type mapped[T, U any] struct {
	src Stream[T]
	f   func(T) U
}

func (m mapped[T, U]) Subscribe(fn func(U)) Subscription {
	if fn == nil {
		return noopSubscription{}
	}
	return m.src.Subscribe(func(v T) {
		fn(m.f(v))
	})
}

type filtered[T any] struct {
	src  Stream[T]
	pred func(T) bool
}

func (p filtered[T]) Subscribe(fn func(T)) Subscription {
	if fn == nil {
		return noopSubscription{}
	}
	return p.src.Subscribe(func(v T) {
		if p.pred(v) {
			fn(v)
		}
	})
}
