package events

import (
	"context"
	"sync"
)

// Recorder is a Publisher that keeps every event it receives. Tests use it
// to assert what an operation published.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in publish order. quote:updated
// events are reported by their inner event name.
func (r *Recorder) Types() []string {
	var out []string
	for _, ev := range r.Events() {
		if env, ok := ev.Payload.(Envelope); ok {
			out = append(out, env.Event)
			continue
		}
		out = append(out, ev.Type)
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
