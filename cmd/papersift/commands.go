package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/papersift/internal/config"
	"github.com/kalambet/papersift/internal/monitor"
	"github.com/kalambet/papersift/internal/ollama"
	"github.com/kalambet/papersift/internal/storage"
)

// --- scan ---

var scanCmd = &cobra.Command{
	Use:   "scan <file>...",
	Short: "Classify the given files once, without touching watch state",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(args)
	},
}

func runScan(paths []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	initLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := ollama.New(cfg.Ollama.BaseURL)
	if err := ollama.EnsureReady(ctx, client, cfg.Ollama.Model, os.Stderr); err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	classifier, err := buildClassifier(cfg, client, store)
	if err != nil {
		return err
	}

	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		content := monitor.ExtractContent(path, raw)
		if content == "" {
			printWarning("%s: no extractable text, skipping", path)
			continue
		}

		printStep("Scanning %s...", path)
		found, err := classifier.ProcessDocument(ctx, filepath.Base(path), content)
		if err != nil {
			return err
		}
		if found {
			printSuccess("%s: relevant content or source URLs found", path)
		} else {
			printStatus(path, "nothing relevant")
		}
	}
	return nil
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Ollama readiness and collection counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	ctx := context.Background()
	client := ollama.New(cfg.Ollama.BaseURL)
	if client.IsRunning(ctx) {
		printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
		if client.HasModel(ctx, cfg.Ollama.Model) {
			printStatus("Model", "%s (available)", cfg.Ollama.Model)
		} else {
			printStatus("Model", "%s (not pulled)", cfg.Ollama.Model)
		}
	} else {
		printStatus("Ollama", "not running")
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		printError("storage error: %v", err)
		return nil
	}
	defer store.Close()

	stats, err := store.GetStats()
	if err != nil {
		printError("stats error: %v", err)
		return nil
	}
	printStatus("Watched files", "%d", stats.Snapshots)
	printStatus("Relevant", "%d entries", stats.Relevant)
	printStatus("Non-relevant", "%d entries", stats.NonRelevant)
	printStatus("Watch dir", "%s", cfg.Watch.Dir)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

// --- sources ---

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List collected source entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		nonRelevant, _ := cmd.Flags().GetBool("non-relevant")
		asJSON, _ := cmd.Flags().GetBool("json")
		limit, _ := cmd.Flags().GetInt("limit")
		return listSources(nonRelevant, asJSON, limit)
	},
}

func init() {
	sourcesCmd.Flags().Bool("non-relevant", false, "list the non-relevant collection instead")
	sourcesCmd.Flags().Bool("json", false, "output as JSON")
	sourcesCmd.Flags().Int("limit", 20, "maximum number of entries (0 for all)")
}

func listSources(nonRelevant, asJSON bool, limit int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	collection := storage.CollectionRelevant
	if nonRelevant {
		collection = storage.CollectionNonRelevant
	}

	entries, err := store.ListSources(collection, limit)
	if err != nil {
		return fmt.Errorf("listing sources: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(toExportEntries(entries))
	}

	if len(entries) == 0 {
		fmt.Println("No entries found.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("\n%s  %s\n", colorize(colorBold, e.Filename), e.AddedAt.Format("2006-01-02 15:04"))
		if e.SourceURL != "" {
			fmt.Printf("  %s\n", colorize(colorCyan, e.SourceURL))
		}
		for _, p := range e.Paragraphs {
			if len(p) > 200 {
				p = p[:200] + "..."
			}
			fmt.Printf("  - %s\n", p)
		}
	}
	return nil
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write relevant and non-relevant collections as JSON files",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		if err := writeExports(store, out); err != nil {
			return err
		}
		printSuccess("Collections exported to %s", out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", ".", "output directory")
}

// exportEntry mirrors the original monitor's JSON artifact record.
type exportEntry struct {
	Filename   string   `json:"filename"`
	SourceURL  string   `json:"source_url,omitempty"`
	Paragraphs []string `json:"paragraphs"`
	Timestamp  string   `json:"timestamp"`
}

func toExportEntries(entries []storage.SourceEntry) []exportEntry {
	out := make([]exportEntry, len(entries))
	for i, e := range entries {
		out[i] = exportEntry{
			Filename:   e.Filename,
			SourceURL:  e.SourceURL,
			Paragraphs: e.Paragraphs,
			Timestamp:  e.AddedAt.Format(time.RFC3339),
		}
	}
	return out
}

// writeExports dumps both collections into dir as indented JSON arrays, one
// file per collection.
func writeExports(store *storage.Store, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	files := []struct {
		collection string
		name       string
	}{
		{storage.CollectionRelevant, "relevant_sources.json"},
		{storage.CollectionNonRelevant, "non_relevant_sources.json"},
	}

	for _, f := range files {
		entries, err := store.ListSources(f.collection, 0)
		if err != nil {
			return fmt.Errorf("listing %s sources: %w", f.collection, err)
		}
		data, err := json.MarshalIndent(toExportEntries(entries), "", "    ")
		if err != nil {
			return fmt.Errorf("encoding %s sources: %w", f.collection, err)
		}
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show where configuration is stored",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.BackendLocation())
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
}
