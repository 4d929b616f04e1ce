// Package notify fans operational events out to registered subscribers.
// Notifications are the cross-cutting escalation path, distinct from the
// per-exchange analytics log.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Severity grades an event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Event is one operational notification.
type Event struct {
	Time     time.Time `json:"time"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
}

// Subscriber receives every dispatched event.
type Subscriber func(Event)

// Dispatcher delivers events to slog and to all subscribers. Safe for
// concurrent use.
type Dispatcher struct {
	mu   sync.Mutex
	subs []Subscriber
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers a callback for future events.
func (d *Dispatcher) Subscribe(fn Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, fn)
}

// Notify stamps and delivers an event. A panicking subscriber is contained
// so one bad callback cannot take down the exchange that raised the event.
func (d *Dispatcher) Notify(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	if ev.Severity == "" {
		ev.Severity = SeverityInfo
	}

	logEvent(ev)

	d.mu.Lock()
	subs := make([]Subscriber, len(d.subs))
	copy(subs, d.subs)
	d.mu.Unlock()

	for _, fn := range subs {
		deliver(fn, ev)
	}
}

func deliver(fn Subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("notification subscriber panicked", "title", ev.Title, "panic", r)
		}
	}()
	fn(ev)
}

func logEvent(ev Event) {
	switch ev.Severity {
	case SeverityWarning:
		slog.Warn(ev.Title, "message", ev.Message)
	case SeverityError, SeverityCritical:
		slog.Error(ev.Title, "message", ev.Message, "severity", string(ev.Severity))
	default:
		slog.Info(ev.Title, "message", ev.Message)
	}
}
