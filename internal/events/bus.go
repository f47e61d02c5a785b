package events

import "sync"

// Sink receives events. Handle must not block for long; the bus calls
// sinks synchronously in subscription order.
type Sink interface {
	Handle(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Handle implements Sink.
func (f SinkFunc) Handle(e Event) { f(e) }

// Bus fans events out to subscribers.
type Bus struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewBus constructs a bus with the given initial sinks.
func NewBus(sinks ...Sink) *Bus {
	b := &Bus{}
	for _, sink := range sinks {
		b.Subscribe(sink)
	}
	return b
}

// Subscribe registers sink and returns a function that removes it.
func (b *Bus) Subscribe(sink Sink) func() {
	if sink == nil {
		return func() {}
	}
	holder := &sinkHolder{sink: sink}
	b.mu.Lock()
	b.sinks = append(b.sinks, holder)
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.sinks {
			if s == holder {
				b.sinks = append(b.sinks[:i], b.sinks[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e to every sink.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.RUnlock()
	for _, sink := range sinks {
		sink.Handle(e)
	}
}

// Drain publishes every event from ch until it closes and returns the
// final RunFinished event, if one was seen.
func (b *Bus) Drain(ch <-chan Event) (Event, bool) {
	var last Event
	var finished bool
	for e := range ch {
		b.Publish(e)
		if e.Kind == RunFinished {
			last = e
			finished = true
		}
	}
	return last, finished
}

type sinkHolder struct {
	sink Sink
}

func (h *sinkHolder) Handle(e Event) { h.sink.Handle(e) }
