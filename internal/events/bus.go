package events

import (
	"sync"
	"time"

	"toolscout/internal/core"
	"toolscout/internal/logger"
)

// DefaultBuffer is the per-subscriber channel buffer.
const DefaultBuffer = 64

// Bus fans progress events out from the pipeline controller to any number of
// live subscribers while keeping an ordered in-memory history for status
// polling. Publishing never blocks the pipeline: a subscriber that cannot
// keep up has events dropped from its own channel only.
//
// A complete or error event is terminal: it is delivered, all subscriber
// channels are closed, and later publishes are discarded until Reset.
type Bus struct {
	mu       sync.Mutex
	buffer   int
	history  []core.ProgressEvent
	subs     map[int]chan core.ProgressEvent
	nextID   int
	finished bool
}

// NewBus creates a bus whose subscriber channels buffer up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		buffer: buffer,
		subs:   make(map[int]chan core.ProgressEvent),
	}
}

// Progress publishes a progress event with the given message.
func (b *Bus) Progress(message string) {
	b.Publish(core.ProgressEvent{Type: core.EventProgress, Message: message, Timestamp: time.Now().UTC()})
}

// Complete publishes the terminal complete event.
func (b *Bus) Complete(message string) {
	b.Publish(core.ProgressEvent{Type: core.EventComplete, Message: message, Timestamp: time.Now().UTC()})
}

// Error publishes the terminal error event.
func (b *Bus) Error(message string) {
	b.Publish(core.ProgressEvent{Type: core.EventError, Message: message, Timestamp: time.Now().UTC()})
}

// Publish appends the event to the history and delivers it to every
// subscriber. Terminal events close all subscriber channels.
func (b *Bus) Publish(evt core.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished {
		logger.Debug("Event dropped after terminal event", "type", string(evt.Type), "message", evt.Message)
		return
	}

	b.history = append(b.history, evt)

	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			logger.Warn("Slow event subscriber, dropping event", "subscriber", id, "type", string(evt.Type))
		}
	}

	if evt.Type == core.EventComplete || evt.Type == core.EventError {
		b.finished = true
		for id, ch := range b.subs {
			close(ch)
			delete(b.subs, id)
		}
	}
}

// Subscribe returns a channel that first replays the history recorded so far
// and then receives live events in emission order. The cancel function must
// be called when the subscriber is done; it is safe to call after the
// channel has been closed by a terminal event.
func (b *Bus) Subscribe() (<-chan core.ProgressEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan core.ProgressEvent, len(b.history)+b.buffer)
	for _, evt := range b.history {
		ch <- evt
	}

	if b.finished {
		// History already ends with the terminal event.
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subs[id]; ok {
			close(ch)
			delete(b.subs, id)
		}
	}

	return ch, cancel
}

// History returns a copy of all events published since the last Reset.
func (b *Bus) History() []core.ProgressEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]core.ProgressEvent, len(b.history))
	copy(out, b.history)
	return out
}

// Finished reports whether a terminal event has been published.
func (b *Bus) Finished() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finished
}

// Reset clears the history and terminal flag for a new run. Any remaining
// subscribers from the previous run are closed.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
	b.history = nil
	b.finished = false
}
