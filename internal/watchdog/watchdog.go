// Package watchdog runs recurring health checks over the exchange recorder
// and escalates breaches through the notification dispatcher.
package watchdog

import (
	"context"
	"fmt"
	"log/slog"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/erwiqair/skydesk/internal/analytics"
	"github.com/erwiqair/skydesk/internal/notify"
)

// DefaultSchedule is how often the checks run when config does not override.
const DefaultSchedule = "@every 1m"

// Options tunes the checks. Zero values fall back to the defaults: every
// minute, warn above 10% errors once 10 exchanges exist, warn above a 5s
// running average.
type Options struct {
	Schedule     string
	ErrorRatePct int
	MinExchanges int
	AvgLatencyMs int
}

func (o *Options) fillDefaults() {
	if o.Schedule == "" {
		o.Schedule = DefaultSchedule
	}
	if o.ErrorRatePct <= 0 {
		o.ErrorRatePct = 10
	}
	if o.MinExchanges <= 0 {
		o.MinExchanges = 10
	}
	if o.AvgLatencyMs <= 0 {
		o.AvgLatencyMs = 5000
	}
}

// Service schedules the health checks.
type Service struct {
	recorder *analytics.Recorder
	notifier *notify.Dispatcher
	opts     Options
	cron     *robfigcron.Cron
}

func NewService(recorder *analytics.Recorder, notifier *notify.Dispatcher, opts Options) *Service {
	opts.fillDefaults()
	return &Service{
		recorder: recorder,
		notifier: notifier,
		opts:     opts,
		cron:     robfigcron.New(),
	}
}

// Start arms the schedule and blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.opts.Schedule, s.RunChecks); err != nil {
		return fmt.Errorf("watchdog schedule %q: %w", s.opts.Schedule, err)
	}
	s.cron.Start()
	slog.Info("watchdog: started", "schedule", s.opts.Schedule)

	<-ctx.Done()

	<-s.cron.Stop().Done()
	return ctx.Err()
}

// RunChecks evaluates every health check once.
func (s *Service) RunChecks() {
	s.CheckErrorRate()
	s.CheckResponseTime()
}

// CheckErrorRate fires a warning when the error share of recorded exchanges
// crosses the configured percentage. Reports whether a notification was sent.
func (s *Service) CheckErrorRate() bool {
	sum := s.recorder.Summary()
	if sum.TotalQueries <= s.opts.MinExchanges {
		return false
	}
	rate := float64(sum.TotalErrors) / float64(sum.TotalQueries)
	if rate <= float64(s.opts.ErrorRatePct)/100 {
		return false
	}
	s.notifier.Notify(notify.Event{
		Title:    "High Error Rate",
		Message:  fmt.Sprintf("Error rate is %.1f%% (%d/%d)", rate*100, sum.TotalErrors, sum.TotalQueries),
		Severity: notify.SeverityWarning,
	})
	return true
}

// CheckResponseTime fires a warning when the running average latency
// crosses the configured limit. Reports whether a notification was sent.
func (s *Service) CheckResponseTime() bool {
	sum := s.recorder.Summary()
	if sum.AvgResponseTimeMS <= float64(s.opts.AvgLatencyMs) {
		return false
	}
	s.notifier.Notify(notify.Event{
		Title:    "Slow Response Times",
		Message:  fmt.Sprintf("Average response time is %.2fms", sum.AvgResponseTimeMS),
		Severity: notify.SeverityWarning,
	})
	return true
}
