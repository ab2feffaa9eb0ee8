package messages

import (
	"slices"

	"github.com/jpalmerr/coursestore/internal/metrics"
	"github.com/jpalmerr/coursestore/stream"
)

// Bus multicasts batches of user-visible error messages.
//
// Each call to [Bus.ShowErrors] replaces the current batch wholesale. There is
// no deduplication: publishing the same batch twice yields two deliveries.
type Bus struct {
	subject *stream.Subject[[]string]
	errors  stream.Stream[[]string]
}

// NewBus creates a [Bus] whose current batch is empty.
func NewBus() *Bus {
	subject := stream.NewSubject[[]string](nil)
	return &Bus{
		subject: subject,
		errors: stream.Filter[[]string](subject, func(batch []string) bool {
			return len(batch) > 0
		}),
	}
}

// ShowErrors publishes msgs as the new error batch.
//
// The batch is copied; later changes to the caller's slice are not observed.
// Calling ShowErrors with no messages replaces the batch with an empty one,
// which is never delivered on [Bus.Errors].
func (b *Bus) ShowErrors(msgs ...string) {
	batch := slices.Clone(msgs)
	if batch == nil {
		batch = []string{}
	}
	if len(batch) > 0 {
		metrics.RecordErrorBatch(len(batch))
	}
	b.subject.Next(batch)
}

// Errors returns the stream of non-empty error batches.
//
// A subscriber attaching after a publish receives the latest batch
// immediately, provided it is non-empty.
func (b *Bus) Errors() stream.Stream[[]string] {
	return b.errors
}

// Current returns the latest published batch, which may be empty.
func (b *Bus) Current() []string {
	batch, _ := b.subject.Value()
	return slices.Clone(batch)
}
