package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erwiqair/skydesk/internal/config"
	"github.com/erwiqair/skydesk/internal/knowledge"
	"github.com/erwiqair/skydesk/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show SkyDesk status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	fmt.Printf("%s SkyDesk Status\n\n", logo)

	_, statErr := os.Stat(cfgPath)
	cfgMark := "✗"
	if statErr == nil {
		cfgMark = "✓"
	}
	fmt.Printf("Config:    %s %s\n", cfgPath, cfgMark)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	snapshot := cfg.SnapshotPath()
	snapMark := "✗ (run 'skydesk kb build')"
	if docs, err := knowledge.LoadSnapshot(snapshot); err == nil {
		snapMark = fmt.Sprintf("✓ (%d documents)", len(docs))
	}
	fmt.Printf("Snapshot:  %s %s\n", snapshot, snapMark)

	sessionCount := 0
	if mgr, err := session.NewManager(cfg.SessionsDir()); err == nil {
		sessionCount = len(mgr.ListSessions())
	}
	fmt.Printf("Sessions:  %d\n\n", sessionCount)

	fmt.Println("Agent:")
	preferred := cfg.Agent.PreferredBackend
	if preferred == "" {
		preferred = "(canonical order)"
	}
	fmt.Printf("  %-20s %s\n", "Preferred backend", preferred)
	fmt.Printf("  %-20s %d\n", "Max history", cfg.Agent.MaxHistory)
	fmt.Printf("  %-20s %ds\n\n", "Backend timeout", cfg.Agent.BackendTimeout)

	fmt.Println("Providers:")
	printProvider("OpenAI", cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.Model)
	printProvider("Anthropic", cfg.Providers.Anthropic.APIKey, cfg.Providers.Anthropic.Model)
	printProvider("Gemini", cfg.Providers.Gemini.APIKey, cfg.Providers.Gemini.Model)
	fmt.Println()

	fmt.Println("Channels:")
	fmt.Printf("  %-12s %s\n", "cli", yesNo(true))
	fmt.Printf("  %-12s %s\n", "webchat", yesNo(cfg.Channels.WebChat.Enabled))
	fmt.Printf("  %-12s %s\n", "telegram", yesNo(cfg.Channels.Telegram.Enabled))
	fmt.Printf("  %-12s %s\n\n", "slack", yesNo(cfg.Channels.Slack.Enabled))

	fmt.Printf("Gateway:   %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	if cfg.Watchdog.Enabled {
		fmt.Printf("Watchdog:  ✓ %s\n", cfg.Watchdog.Schedule)
	} else {
		fmt.Printf("Watchdog:  ✗\n")
	}
	return nil
}

func printProvider(label, key, model string) {
	if key == "" {
		fmt.Printf("  %-12s (not set)\n", label)
		return
	}
	fmt.Printf("  %-12s ✓ %s\n", label, model)
}
