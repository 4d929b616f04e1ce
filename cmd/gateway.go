package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/erwiqair/skydesk/internal/config"
	"github.com/erwiqair/skydesk/internal/container"
	"github.com/erwiqair/skydesk/internal/notify"
)

var (
	gatewayHost string
	gatewayPort int
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the SkyDesk gateway server",
	RunE:  runGateway,
}

func init() {
	gatewayCmd.Flags().StringVar(&gatewayHost, "host", "", "Override the bind address")
	gatewayCmd.Flags().IntVarP(&gatewayPort, "port", "p", 0, "Override the gateway port")
}

func runGateway(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if gatewayHost != "" {
		cfg.Gateway.Host = gatewayHost
	}
	if gatewayPort > 0 {
		cfg.Gateway.Port = gatewayPort
	}

	c, err := container.New(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("%s Starting SkyDesk gateway on %s:%d...\n", logo, cfg.Gateway.Host, cfg.Gateway.Port)

	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	warmKnowledge(ctx, c)

	// Surface orchestrator and watchdog alerts in the server log.
	c.Notifier().Subscribe(func(ev notify.Event) {
		slog.Warn("notification", "severity", ev.Severity, "title", ev.Title, "message", ev.Message)
	})

	if enabled := c.Channels().EnabledChannels(); len(enabled) > 0 {
		fmt.Printf("✓ Channels enabled: %s\n", strings.Join(enabled, ", "))
	} else {
		fmt.Println("Warning: no channels enabled")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.Loop().Run(gctx) })
	g.Go(func() error { return c.Channels().StartAll(gctx) })
	g.Go(func() error { return c.Gateway().Start(gctx) })
	if cfg.Watchdog.Enabled {
		g.Go(func() error { return c.Watchdog().Start(gctx) })
	}

	fmt.Printf("%s Gateway running. Press Ctrl+C to stop.\n", logo)

	if err := g.Wait(); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "gateway error: %v\n", err)
		return err
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
