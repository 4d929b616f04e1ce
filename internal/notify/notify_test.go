package notify

import (
	"testing"
)

func TestNotify_DeliversToAllSubscribers(t *testing.T) {
	d := NewDispatcher()

	var first, second []Event
	d.Subscribe(func(ev Event) { first = append(first, ev) })
	d.Subscribe(func(ev Event) { second = append(second, ev) })

	d.Notify(Event{Title: "All Models Failed", Message: "rate limit exceeded", Severity: SeverityError})

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("deliveries = %d/%d, want 1/1", len(first), len(second))
	}
	got := first[0]
	if got.Title != "All Models Failed" || got.Severity != SeverityError {
		t.Errorf("event = %+v", got)
	}
	if got.Time.IsZero() {
		t.Error("event time was not stamped")
	}
}

func TestNotify_DefaultsToInfoSeverity(t *testing.T) {
	d := NewDispatcher()
	var got Event
	d.Subscribe(func(ev Event) { got = ev })

	d.Notify(Event{Title: "startup"})
	if got.Severity != SeverityInfo {
		t.Errorf("severity = %q, want info", got.Severity)
	}
}

func TestNotify_PanickingSubscriberDoesNotBlockOthers(t *testing.T) {
	d := NewDispatcher()
	d.Subscribe(func(Event) { panic("bad subscriber") })

	delivered := false
	d.Subscribe(func(Event) { delivered = true })

	d.Notify(Event{Title: "High Error Rate", Severity: SeverityWarning})
	if !delivered {
		t.Error("later subscriber was not reached after a panic")
	}
}

func TestNotify_NoSubscribersIsFine(t *testing.T) {
	NewDispatcher().Notify(Event{Title: "quiet", Severity: SeverityInfo})
}
