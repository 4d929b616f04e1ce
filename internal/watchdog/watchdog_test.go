package watchdog

import (
	"context"
	"strings"
	"testing"

	"github.com/erwiqair/skydesk/internal/analytics"
	"github.com/erwiqair/skydesk/internal/notify"
)

func newTestWatchdog(t *testing.T) (*Service, *analytics.Recorder, *[]notify.Event) {
	t.Helper()
	recorder := analytics.NewRecorder(nil)
	notifier := notify.NewDispatcher()
	var events []notify.Event
	notifier.Subscribe(func(ev notify.Event) { events = append(events, ev) })
	return NewService(recorder, notifier, Options{}), recorder, &events
}

func record(r *analytics.Recorder, n int, errText string, latencyMS float64) {
	for i := 0; i < n; i++ {
		r.Record(analytics.Interaction{Backend: "openai", Error: errText, ResponseTimeMS: latencyMS})
	}
}

func TestCheckErrorRate_FiresAboveThreshold(t *testing.T) {
	s, recorder, events := newTestWatchdog(t)
	record(recorder, 10, "", 100)
	record(recorder, 2, "backend down", 100)

	if !s.CheckErrorRate() {
		t.Fatal("CheckErrorRate did not fire at 2/12 errors")
	}
	if len(*events) != 1 {
		t.Fatalf("notifications = %d, want 1", len(*events))
	}
	ev := (*events)[0]
	if ev.Title != "High Error Rate" || ev.Severity != notify.SeverityWarning {
		t.Errorf("event = %+v", ev)
	}
	if !strings.Contains(ev.Message, "(2/12)") {
		t.Errorf("message = %q, want error counts included", ev.Message)
	}
}

func TestCheckErrorRate_NeedsEnoughTraffic(t *testing.T) {
	s, recorder, events := newTestWatchdog(t)
	record(recorder, 5, "backend down", 100)

	if s.CheckErrorRate() {
		t.Error("CheckErrorRate fired with only 5 exchanges")
	}
	if len(*events) != 0 {
		t.Errorf("notifications = %d, want 0", len(*events))
	}
}

func TestCheckErrorRate_QuietBelowTenPercent(t *testing.T) {
	s, recorder, events := newTestWatchdog(t)
	record(recorder, 19, "", 100)
	record(recorder, 1, "blip", 100)

	if s.CheckErrorRate() {
		t.Error("CheckErrorRate fired at 5% errors")
	}
	if len(*events) != 0 {
		t.Errorf("notifications = %d, want 0", len(*events))
	}
}

func TestCheckResponseTime_FiresWhenSlow(t *testing.T) {
	s, recorder, events := newTestWatchdog(t)
	record(recorder, 3, "", 6000)

	if !s.CheckResponseTime() {
		t.Fatal("CheckResponseTime did not fire at 6s average")
	}
	ev := (*events)[0]
	if ev.Title != "Slow Response Times" || ev.Severity != notify.SeverityWarning {
		t.Errorf("event = %+v", ev)
	}
}

func TestCheckResponseTime_QuietWhenFast(t *testing.T) {
	s, recorder, events := newTestWatchdog(t)
	record(recorder, 3, "", 150)

	if s.CheckResponseTime() {
		t.Error("CheckResponseTime fired at 150ms average")
	}
	if len(*events) != 0 {
		t.Errorf("notifications = %d, want 0", len(*events))
	}
}

func TestRunChecks_BothBreachesFire(t *testing.T) {
	s, recorder, events := newTestWatchdog(t)
	record(recorder, 9, "", 8000)
	record(recorder, 3, "down", 8000)

	s.RunChecks()
	if len(*events) != 2 {
		t.Fatalf("notifications = %d, want 2", len(*events))
	}
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	recorder := analytics.NewRecorder(nil)
	s := NewService(recorder, notify.NewDispatcher(), Options{Schedule: "not a schedule"})
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Start accepted an invalid schedule")
	}
}
