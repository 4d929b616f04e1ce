package container

import (
	"slices"
	"testing"

	"github.com/erwiqair/skydesk/internal/config"
)

func TestNew_WiresCoreServices(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := config.DefaultConfig()
	c, err := New(&cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if c.Config() != &cfg {
		t.Error("Config() should return the seed config")
	}
	if c.Bus() == nil {
		t.Error("Bus() is nil")
	}
	if c.Backends() == nil || c.Backends().OpenAI == nil || c.Backends().Claude == nil || c.Backends().Gemini == nil {
		t.Error("backend set is incomplete")
	}
	if c.Store() == nil {
		t.Error("Store() is nil")
	}
	if c.Recorder() == nil || c.Metrics() == nil || c.Notifier() == nil {
		t.Error("analytics services are incomplete")
	}
	if c.Watchdog() == nil {
		t.Error("Watchdog() is nil")
	}
	if c.Sessions() == nil {
		t.Error("Sessions() is nil")
	}
	if c.Loop() == nil {
		t.Error("Loop() is nil")
	}
	if c.Gateway() == nil {
		t.Error("Gateway() is nil")
	}
}

func TestNew_RegistersAllTools(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := config.DefaultConfig()
	c, err := New(&cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	names := c.Registry().Names()
	want := []string{
		"get_ticket_price",
		"get_flight_status",
		"lookup_booking",
		"process_refund",
		"get_destination_image",
		"search_airline_policies",
	}
	for _, w := range want {
		if !slices.Contains(names, w) {
			t.Errorf("registry is missing tool %q (have %v)", w, names)
		}
	}
	if c.Registry().Len() != len(want) {
		t.Errorf("Len() = %d, want %d", c.Registry().Len(), len(want))
	}
}

func TestNew_EnablesDefaultChannels(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := config.DefaultConfig()
	c, err := New(&cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	enabled := c.Channels().EnabledChannels()
	if !slices.Contains(enabled, "cli") {
		t.Errorf("cli channel should always be enabled, got %v", enabled)
	}
	if !slices.Contains(enabled, "webchat") {
		t.Errorf("webchat is on by default, got %v", enabled)
	}
	if slices.Contains(enabled, "telegram") || slices.Contains(enabled, "slack") {
		t.Errorf("telegram and slack need explicit config, got %v", enabled)
	}
}
