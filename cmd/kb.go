package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/erwiqair/skydesk/internal/config"
	"github.com/erwiqair/skydesk/internal/container"
	"github.com/erwiqair/skydesk/internal/knowledge"
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the policy knowledge base",
}

func init() {
	kbCmd.AddCommand(kbBuildCmd)
	kbCmd.AddCommand(kbStatusCmd)
	kbCmd.AddCommand(kbImportCmd)
}

// ---- build -----------------------------------------------------------------

var kbRebuild bool

var kbBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Embed the policy catalog and persist the snapshot",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load(config.ConfigPath())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		c, err := container.New(cfg)
		if err != nil {
			return err
		}

		snapshot := cfg.SnapshotPath()
		if kbRebuild {
			if err := os.Remove(snapshot); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove old snapshot: %w", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := c.WarmKnowledge(ctx); err != nil {
			return err
		}

		store := c.Store()
		fmt.Printf("✓ Knowledge base ready: %d documents, %d categories\n", store.Len(), len(store.Categories()))
		fmt.Printf("  Snapshot: %s\n", snapshot)
		return nil
	},
}

func init() {
	kbBuildCmd.Flags().BoolVar(&kbRebuild, "rebuild", false, "Discard the existing snapshot and re-embed the catalog")
}

// ---- status ----------------------------------------------------------------

var kbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show snapshot contents",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load(config.ConfigPath())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		snapshot := cfg.SnapshotPath()
		docs, err := knowledge.LoadSnapshot(snapshot)
		if err != nil {
			fmt.Printf("No snapshot at %s\nRun 'skydesk kb build' to create one.\n", snapshot)
			return nil
		}

		store := knowledge.NewStore(nil, cfg.Retrieval.TopK, cfg.Retrieval.RelevanceThreshold)
		store.SetDocuments(docs)

		ready := "✗ (missing embeddings, run 'skydesk kb build')"
		if store.Ready() {
			ready = "✓"
		}

		fmt.Printf("Snapshot:   %s\n", snapshot)
		fmt.Printf("Documents:  %d\n", store.Len())
		fmt.Printf("Embeddings: %s\n", ready)
		fmt.Printf("Retrieval:  top %d, threshold %.2f\n\n", cfg.Retrieval.TopK, cfg.Retrieval.RelevanceThreshold)

		counts := map[string]int{}
		for _, d := range docs {
			counts[d.Category]++
		}
		fmt.Printf("%-28s %s\n", "Category", "Documents")
		fmt.Println(strings.Repeat("-", 40))
		for _, cat := range store.Categories() {
			fmt.Printf("%-28s %d\n", cat, counts[cat])
		}
		return nil
	},
}

// ---- import ----------------------------------------------------------------

var kbImportCategory string

var kbImportCmd = &cobra.Command{
	Use:   "import <url>",
	Short: "Import a web page into the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		cfg, err := config.Load(config.ConfigPath())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		c, err := container.New(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		// The full corpus has to be loaded first so the refreshed snapshot
		// keeps the built-in documents alongside the import.
		if err := c.WarmKnowledge(ctx); err != nil {
			return err
		}

		imp := knowledge.NewImporter(c.Store())
		doc, err := imp.ImportURL(ctx, args[0], kbImportCategory)
		if err != nil {
			return err
		}
		if err := knowledge.SaveSnapshot(cfg.SnapshotPath(), c.Store().Documents()); err != nil {
			return err
		}

		fmt.Printf("✓ Imported %q (%d chars) into category %s\n", doc.Title, len(doc.Content), doc.Category)
		return nil
	},
}

func init() {
	kbImportCmd.Flags().StringVarP(&kbImportCategory, "category", "c", "", `Category for the imported document (default "Imported")`)
}
