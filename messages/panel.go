package messages

import (
	"slices"
	"sync"

	"github.com/jpalmerr/coursestore/stream"
)

// Panel tracks whether an error presentation is open for one consumer.
//
// Every batch delivered by the bus opens the panel and replaces its messages.
// [Panel.Close] hides it locally without touching the bus.
type Panel struct {
	mu       sync.RWMutex
	visible  bool
	messages []string
	sub      stream.Subscription
}

// NewPanel creates a [Panel] attached to b. If b already holds a non-empty
// batch the panel opens immediately.
func NewPanel(b *Bus) *Panel {
	p := &Panel{}
	p.sub = b.Errors().Subscribe(p.open)
	return p
}

func (p *Panel) open(batch []string) {
	p.mu.Lock()
	p.visible = true
	p.messages = batch
	p.mu.Unlock()
}

// Visible reports whether the panel is currently showing errors.
func (p *Panel) Visible() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.visible
}

// Messages returns the most recently delivered batch.
func (p *Panel) Messages() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.messages)
}

// Close dismisses the panel. The bus keeps its last batch.
func (p *Panel) Close() {
	p.mu.Lock()
	p.visible = false
	p.mu.Unlock()
}

// Stop detaches the panel from the bus.
func (p *Panel) Stop() {
	p.sub.Unsubscribe()
}
