package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/erwiqair/skydesk/internal/analytics"
	"github.com/erwiqair/skydesk/internal/config"
)

var analyticsGateway string

// analyticsCmd reads from a running gateway; the recorder lives in that
// process, so there is nothing to show when no gateway is up.
var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Inspect exchange analytics from a running gateway",
	RunE:  runAnalyticsSummary,
}

func init() {
	analyticsCmd.PersistentFlags().StringVar(&analyticsGateway, "gateway", "", "Gateway base URL (default from config)")
	analyticsCmd.AddCommand(analyticsRecentCmd)
	analyticsCmd.AddCommand(analyticsExportCmd)
}

func runAnalyticsSummary(_ *cobra.Command, _ []string) error {
	data, err := fetchGateway("/api/analytics")
	if err != nil {
		return err
	}
	var sum analytics.Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		return fmt.Errorf("parse summary: %w", err)
	}

	fmt.Printf("%s SkyDesk Analytics\n\n", logo)
	fmt.Printf("%-20s %d\n", "Total queries", sum.TotalQueries)
	fmt.Printf("%-20s %d\n", "Total errors", sum.TotalErrors)
	fmt.Printf("%-20s %.1fms\n", "Avg response time", sum.AvgResponseTimeMS)

	if len(sum.BackendUsage) > 0 {
		fmt.Println("\nBackend usage:")
		for _, name := range sortedKeys(sum.BackendUsage) {
			fmt.Printf("  %-24s %d\n", name, sum.BackendUsage[name])
		}
	}
	if len(sum.ToolUsage) > 0 {
		fmt.Println("\nTool usage:")
		for _, name := range sortedKeys(sum.ToolUsage) {
			fmt.Printf("  %-24s %d\n", name, sum.ToolUsage[name])
		}
	}
	return nil
}

// ---- recent ------------------------------------------------------------------

var analyticsRecentN int

var analyticsRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recent exchanges",
	RunE: func(_ *cobra.Command, _ []string) error {
		data, err := fetchGateway(fmt.Sprintf("/api/analytics/recent?n=%d", analyticsRecentN))
		if err != nil {
			return err
		}
		var logs []analytics.Interaction
		if err := json.Unmarshal(data, &logs); err != nil {
			return fmt.Errorf("parse interactions: %w", err)
		}
		if len(logs) == 0 {
			fmt.Println("No exchanges recorded yet.")
			return nil
		}

		fmt.Printf("%-6s %-8s %-9s %-24s %s\n", "Time", "Backend", "Latency", "Tools", "Message")
		fmt.Println(strings.Repeat("-", 88))
		for _, in := range logs {
			tools := "-"
			if len(in.ToolsUsed) > 0 {
				tools = strings.Join(in.ToolsUsed, ",")
			}
			fmt.Printf("%-6s %-8s %-9s %-24s %s\n",
				in.Timestamp.Format("15:04"),
				in.Backend,
				fmt.Sprintf("%.0fms", in.ResponseTimeMS),
				truncStr(tools, 23),
				truncStr(in.UserMessage, 36),
			)
		}
		return nil
	},
}

func init() {
	analyticsRecentCmd.Flags().IntVarP(&analyticsRecentN, "count", "n", 20, "Number of exchanges to show")
}

// ---- export ------------------------------------------------------------------

var analyticsExportCmd = &cobra.Command{
	Use:   "export [dir]",
	Short: "Write logs and summary JSON files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}

		stamp := time.Now().Format("20060102_150405")

		logs, err := fetchGateway("/api/analytics/recent?n=1000")
		if err != nil {
			return err
		}
		logsPath := filepath.Join(dir, "skydesk_logs_"+stamp+".json")
		if err := os.WriteFile(logsPath, logs, 0o644); err != nil {
			return err
		}

		summary, err := fetchGateway("/api/analytics")
		if err != nil {
			return err
		}
		summaryPath := filepath.Join(dir, "skydesk_summary_"+stamp+".json")
		if err := os.WriteFile(summaryPath, summary, 0o644); err != nil {
			return err
		}

		fmt.Printf("✓ Exported %s\n", logsPath)
		fmt.Printf("✓ Exported %s\n", summaryPath)
		return nil
	},
}

// ---- helpers -----------------------------------------------------------------

// fetchGateway GETs path from the gateway and returns the raw body.
func fetchGateway(path string) ([]byte, error) {
	base, err := gatewayBaseURL()
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(base + path)
	if err != nil {
		return nil, fmt.Errorf("reach gateway at %s (is it running?): %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned HTTP %d for %s", resp.StatusCode, path)
	}
	return io.ReadAll(resp.Body)
}

func gatewayBaseURL() (string, error) {
	if analyticsGateway != "" {
		return strings.TrimRight(analyticsGateway, "/"), nil
	}

	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	host := cfg.Gateway.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, cfg.Gateway.Port), nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncStr(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
