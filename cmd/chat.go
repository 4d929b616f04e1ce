package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/erwiqair/skydesk/internal/channels"
	"github.com/erwiqair/skydesk/internal/config"
	"github.com/erwiqair/skydesk/internal/container"
	"github.com/erwiqair/skydesk/internal/providers"
	"github.com/erwiqair/skydesk/internal/shared/cmdutils"
)

var (
	chatMessage string
	chatSession string
	chatBackend string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the support agent",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "cli:local", "Session ID")
	chatCmd.Flags().StringVarP(&chatBackend, "backend", "b", "", "Preferred backend: openai, claude, or gemini")
}

func runChat(_ *cobra.Command, _ []string) error {
	if chatBackend != "" && !slices.Contains(providers.FallbackOrder(), chatBackend) {
		return fmt.Errorf("unknown backend %q (choose openai, claude, or gemini)", chatBackend)
	}

	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	c, err := container.New(cfg)
	if err != nil {
		return err
	}

	if chatMessage != "" {
		return runSingleMessage(c)
	}
	return runInteractive(c)
}

// runSingleMessage sends one message to the agent and prints the response.
func runSingleMessage(c *container.Container) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	warmKnowledge(ctx, c)

	fmt.Fprintf(os.Stderr, "  ↳ thinking...\n")
	out := c.Loop().ProcessDirect(ctx, chatMessage, chatSession, chatBackend)

	cmdutils.PrintResponse(out.Reply, out.Backend, out.ToolsUsed)
	return nil
}

// runInteractive starts the console REPL: the CLI channel reads lines from
// stdin and publishes them inbound, the agent loop answers, and a small pump
// routes outbound replies back into the channel for printing.
func runInteractive(c *container.Container) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	warmKnowledge(ctx, c)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Loop().Run(gctx) })

	cli := channels.NewCLIChannel(c.Bus(), chatBackend)
	g.Go(func() error {
		for {
			select {
			case msg := <-c.Bus().OutboundChan():
				_ = cli.Send(gctx, msg)
			case <-gctx.Done():
				return nil
			}
		}
	})

	err := cli.Start(gctx)
	stop()

	if werr := g.Wait(); werr != nil && werr != context.Canceled {
		return werr
	}
	if err == context.Canceled {
		return nil
	}
	return err
}

// warmKnowledge loads or builds the retrieval snapshot. The agent still
// answers without it, so a failure only degrades policy questions.
func warmKnowledge(ctx context.Context, c *container.Container) {
	if err := c.WarmKnowledge(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: knowledge base unavailable: %v\n", err)
	}
}
