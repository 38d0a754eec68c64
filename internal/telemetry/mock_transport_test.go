package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// mockTransport implements sentry.Transport, capturing events in-process so
// tests can assert on what would have been sent.
type mockTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func newMockTransport() *mockTransport {
	return &mockTransport{events: make([]*sentry.Event, 0)}
}

//nolint:gocritic // hugeParam: interface requirement, cannot change signature
func (t *mockTransport) Configure(_ sentry.ClientOptions) {}

func (t *mockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *mockTransport) Flush(_ time.Duration) bool { return true }

func (t *mockTransport) FlushWithContext(_ context.Context) bool { return true }

func (t *mockTransport) Close() {}

// Events returns a copy of the captured events.
func (t *mockTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*sentry.Event, len(t.events))
	copy(out, t.events)
	return out
}

// LastEvent returns the most recent event or nil.
func (t *mockTransport) LastEvent() *sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.events) == 0 {
		return nil
	}
	return t.events[len(t.events)-1]
}

// EventCount returns the number of captured events.
func (t *mockTransport) EventCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}
