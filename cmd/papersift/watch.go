package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/papersift/internal/classify"
	"github.com/kalambet/papersift/internal/config"
	"github.com/kalambet/papersift/internal/fetch"
	"github.com/kalambet/papersift/internal/monitor"
	"github.com/kalambet/papersift/internal/ollama"
	"github.com/kalambet/papersift/internal/storage"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the papers directory and classify changed files",
	Long: `Watch the papers directory for new, modified, and deleted files.
Changed content is split into paragraphs, classified against the research
topic, and its Source: URLs are fetched and classified too. Runs until
interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		interval, _ := cmd.Flags().GetString("interval")
		once, _ := cmd.Flags().GetBool("once")
		serve, _ := cmd.Flags().GetBool("serve")
		port, _ := cmd.Flags().GetInt("port")
		return runWatch(dir, interval, once, serve, port)
	},
}

func init() {
	watchCmd.Flags().String("dir", "", "directory to watch (default from config)")
	watchCmd.Flags().String("interval", "", "poll interval, e.g. 5s (default from config)")
	watchCmd.Flags().Bool("once", false, "run a single poll cycle and exit")
	watchCmd.Flags().Bool("serve", false, "also run the status API")
	watchCmd.Flags().Int("port", 0, "status API port (default from config)")
}

func runWatch(dirFlag, intervalFlag string, once, serve bool, portFlag int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	initLogging(cfg.Log.Level)

	dir := cfg.Watch.Dir
	if dirFlag != "" {
		dir = dirFlag
	}
	interval := parseDurationOr(cfg.Watch.Interval, 5*time.Second, "watch.interval")
	if intervalFlag != "" {
		interval, err = time.ParseDuration(intervalFlag)
		if err != nil {
			return fmt.Errorf("invalid --interval: %w", err)
		}
	}
	port := cfg.Server.Port
	if portFlag != 0 {
		port = portFlag
	}

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
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()

	classifier, err := buildClassifier(cfg, client, store)
	if err != nil {
		return err
	}

	changeLog := monitor.NewChangeLog(filepath.Join(cfg.Storage.DataDir, "changes.log"))
	mon, err := monitor.New(dir, interval, store, classifier, changeLog)
	if err != nil {
		return err
	}

	if once {
		return mon.Poll(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		mon.Run(gctx)
		return nil
	})
	if serve {
		g.Go(func() error {
			return serveHTTP(gctx, port, store)
		})
	}
	return g.Wait()
}

// buildClassifier wires the oracle and fetcher into a classifier using the
// configured model, topic, and timeouts.
func buildClassifier(cfg config.Config, client *ollama.Client, store *storage.Store) (*classify.Classifier, error) {
	classifyTimeout := parseDurationOr(cfg.Classify.Timeout, 60*time.Second, "classify.timeout")
	fetchTimeout := parseDurationOr(cfg.Fetch.Timeout, 10*time.Second, "fetch.timeout")

	oracle := classify.NewTopicOracle(client, cfg.Ollama.Model, cfg.Classify.Topic, classifyTimeout)
	return classify.New(oracle, fetch.New(fetchTimeout), store)
}

// parseDurationOr parses a config duration string, falling back to def with a
// warning so a bad config value never prevents startup.
func parseDurationOr(raw string, def time.Duration, key string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("invalid duration in config, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return d
}
