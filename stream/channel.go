package stream

import "sync"

// Channel subscribes to src and forwards its values to a buffered channel.
//
// Sends never block the stream. When the buffer is full the oldest pending
// value is discarded, so a slow reader always converges on the latest value.
// Call the returned cancel func to unsubscribe and close the channel; it is
// safe to call multiple times.
func Channel[T any](src Stream[T], size int) (<-chan T, func()) {
	if size < 1 {
		size = 1
	}
	ch := make(chan T, size)

	var (
		mu     sync.Mutex
		closed bool
	)

	sub := src.Subscribe(func(v T) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		for {
			select {
			case ch <- v:
				return
			default:
			}
			// buffer full, drop the oldest value and retry
			select {
			case <-ch:
			default:
			}
		}
	})

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			sub.Unsubscribe()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}

	return ch, cancel
}
