// Package notify publishes success/failure events to an operational channel.
// Publication is best-effort: callers log a failed publish and move on, so a
// broken broker can never change a workflow outcome.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Publisher publishes a message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic, subject, message string) error
	Close()
}

// Noop is a fallback publisher used when the broker is unreachable at
// startup. It logs and drops every event.
type Noop struct {
	Logger *slog.Logger
}

func (p *Noop) Publish(_ context.Context, topic, subject, _ string) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("notification dropped (no broker)", "topic", topic, "subject", subject)
	return nil
}

func (p *Noop) Close() {}

// Event is one recorded publication.
type Event struct {
	Topic   string
	Subject string
	Message string
}

// Recorder captures published events in memory. Used in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	// Err, when set, is returned from every Publish so tests can prove
	// notification failures are swallowed.
	Err error
}

func (r *Recorder) Publish(_ context.Context, topic, subject, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Topic: topic, Subject: subject, Message: message})
	return r.Err
}

func (r *Recorder) Close() {}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
