package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"

	"github.com/use-agent/skimmer/browser"
	"github.com/use-agent/skimmer/config"
	"github.com/use-agent/skimmer/feed"
	"github.com/use-agent/skimmer/models"
	"github.com/use-agent/skimmer/store"
)

func newRunCmd() *cobra.Command {
	var (
		feedPath       string
		dbPath         string
		maxItems       int
		cutoff         string
		continueOnSeen bool
		printItems     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one extraction over a feed definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			initLogger(cfg.Log)

			def, err := config.LoadFeed(feedPath)
			if err != nil {
				return err
			}
			// Flags override the YAML definition for one-off runs.
			if cmd.Flags().Changed("max-items") {
				def.MaxItems = maxItems
			}
			if cmd.Flags().Changed("cutoff") {
				if _, err := dateparse.ParseAny(cutoff); err != nil {
					return fmt.Errorf("--cutoff %q is not a recognizable date: %w", cutoff, err)
				}
				def.StopAfter = cutoff
			}
			if cmd.Flags().Changed("continue-on-seen") {
				def.ContinueOnSeen = continueOnSeen
			}

			db, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			seen, err := db.SeenURLs(def.Source)
			if err != nil {
				return err
			}
			slog.Info("seeded deduplication ledger", "source", def.Source, "urls", len(seen))

			runCfg, err := def.ExtractionConfig(cfg.Extract, seen)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			session, err := openSession(cfg.Browser)
			if err != nil {
				return err
			}
			defer session.Close()

			page, err := session.Open(ctx, def.URL)
			if err != nil {
				return err
			}

			engine, err := feed.New(page, runCfg)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			urlField := runCfg.URLField
			if urlField == "" {
				urlField = feed.DefaultURLField
			}

			result, runErr := engine.Run(ctx, func(item models.Item) bool {
				url := item.URL(urlField)
				if err := db.SaveItem(def.Source, url, item); err != nil {
					slog.Error("failed to persist item", "url", url, "error", err)
				}
				if printItems {
					if err := enc.Encode(item); err != nil {
						return false
					}
				}
				return true
			})
			if result != nil {
				total, _ := db.CountItems(def.Source)
				slog.Info("run complete",
					"reason", result.Reason,
					"yielded", result.Yielded,
					"skipped", result.Skipped,
					"stored", total,
				)
			}
			if runErr != nil && ctx.Err() == nil {
				return runErr
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&feedPath, "feed", "f", "", "feed definition YAML (required)")
	cmd.Flags().StringVar(&dbPath, "db", "skimmer.db", "item and seen-URL database")
	cmd.Flags().IntVar(&maxItems, "max-items", 0, "cap on yielded items (0 = unbounded)")
	cmd.Flags().StringVar(&cutoff, "cutoff", "", "stop at items older than this date")
	cmd.Flags().BoolVar(&continueOnSeen, "continue-on-seen", false, "scan past already-ingested items")
	cmd.Flags().BoolVar(&printItems, "print", false, "write items to stdout as JSON lines")
	_ = cmd.MarkFlagRequired("feed")

	return cmd
}

// openSession attaches to a running browser when a control URL is
// configured (keeping the user's logins), otherwise launches one.
func openSession(cfg config.BrowserConfig) (*browser.Session, error) {
	opts := browser.Options{
		Headless:          cfg.Headless,
		NoSandbox:         cfg.NoSandbox,
		Bin:               cfg.Bin,
		Proxy:             cfg.Proxy,
		Stealth:           cfg.Stealth,
		NavigationTimeout: cfg.NavigationTimeout,
	}
	if cfg.ControlURL != "" {
		return browser.Attach(cfg.ControlURL, opts)
	}
	return browser.Launch(opts)
}

func newCheckCmd() *cobra.Command {
	var feedPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a feed definition without opening a browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := config.LoadFeed(feedPath)
			if err != nil {
				return err
			}
			container := def.ContainerSelector
			if container == "" {
				container = def.Fields.ContainerSelector()
			}
			fmt.Printf("ok: %s (%s)\n", def.Source, def.URL)
			fmt.Printf("  container: %s\n", container)
			fmt.Printf("  fields:    %d\n", len(def.Fields))
			if def.Navigate != nil {
				fmt.Printf("  navigate:  content_selector=%s\n", def.Navigate.ContentSelector)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&feedPath, "feed", "f", "", "feed definition YAML (required)")
	_ = cmd.MarkFlagRequired("feed")

	return cmd
}
