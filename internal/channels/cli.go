package channels

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/erwiqair/skydesk/internal/bus"
	"github.com/erwiqair/skydesk/internal/shared/cmdutils"
)

var cliExitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

// CLIChannel wires the terminal (stdin/stdout) into the channel manager:
// console input reaches the agent through the bus and each reply is printed
// to stdout before the next prompt.
type CLIChannel struct {
	Base
	backend string                   // preferred backend for this console session
	replies chan bus.OutboundMessage // Send pushes replies here; the REPL prints them
}

// NewCLIChannel creates a CLIChannel. backend optionally pins the console
// session to one model backend ("" = configured default).
func NewCLIChannel(b bus.Bus, backend string) *CLIChannel {
	return &CLIChannel{
		Base:    NewBase("cli", b, nil),
		backend: backend,
		replies: make(chan bus.OutboundMessage, 8),
	}
}

func (c *CLIChannel) Name() string { return "cli" }

// Start runs the stdin REPL: reads lines, dispatches them to the agent via
// the bus, and prints each reply before prompting again.
// Blocks until ctx is cancelled or stdin is closed.
func (c *CLIChannel) Start(ctx context.Context) error {
	fmt.Printf("SkyDesk console ready. Type 'exit' or press Ctrl+C to quit.\n\n")

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("You: ")

		scanDone := make(chan bool, 1)
		go func() {
			scanDone <- scanner.Scan()
		}()

		select {
		case ok := <-scanDone:
			if !ok {
				fmt.Println("\nGoodbye!")
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if cliExitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}

		c.HandleMessage("user", "local", line, c.backend, nil)
		c.waitForReply(ctx)
	}
}

// waitForReply blocks until Send delivers the agent reply, then prints it
// along with its backend and tool attribution.
func (c *CLIChannel) waitForReply(ctx context.Context) {
	select {
	case reply := <-c.replies:
		cmdutils.PrintResponse(reply.Content(), reply.Backend(), reply.ToolsUsed())
	case <-ctx.Done():
	}
}

// Send hands an outbound reply to the REPL loop for printing.
func (c *CLIChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	c.replies <- msg
	return nil
}
