package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"placescout/lib/browser"
	"placescout/lib/telemetry"
	"placescout/services/placescout/planner"
	"placescout/services/placescout/scraper"
	"placescout/services/placescout/store"

	"github.com/spf13/cobra"
)

var scrapeConfig *string
var scrapeSkip *int
var scrapeReplay *string

func init() {
	scrapeConfig = scrapeCmd.Flags().String("config", defaultConfigPath, "The config file to read.")
	scrapeSkip = scrapeCmd.Flags().Int("skip", 0, "The number of queries to skip, used to resume an interrupted run.")
	scrapeReplay = scrapeCmd.Flags().String("replay", "", "A directory of saved html pages to replay instead of launching a browser.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--config <placescout.json5>] [--skip <n>] [--replay <dir>]",
	Short: "Runs every (category, locality) search and stores the new restaurants found.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := readConfig(*scrapeConfig)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		opts, err := cfg.ScraperOptions()
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		queries := planner.Plan(cfg.Categories, cfg.Localities)
		total := len(queries)
		queries = planner.Skip(queries, *scrapeSkip)
		if len(queries) == 0 {
			slog.Info("nothing to do", "planned", total, "skipped", *scrapeSkip)
			return nil
		}

		st := store.Load(ctx, cfg.Store)
		slog.Info(
			"starting scrape",
			"queries", len(queries),
			"skipped", total-len(queries),
			"known", st.Len(),
			"store", st.Path(),
		)

		if tel.Enabled() {
			telemetry.InstrumentPerfStats(ctx, 30*time.Second)
		}

		acquire := func(ctx context.Context) (browser.Session, error) {
			if *scrapeReplay != "" {
				slog.Info("replaying saved pages", "dir", *scrapeReplay)
				session, err := browser.LoadStaticSession(*scrapeReplay, opts.SearchUrl)
				if err != nil {
					return nil, err
				}
				return session, nil
			}
			session, err := browser.NewRodSession(ctx, cfg.RodOptions())
			if err != nil {
				return nil, err
			}
			return session, nil
		}

		var stats scraper.Stats
		t1 := time.Now()
		err = browser.Use(ctx, acquire, func(ctx context.Context, session browser.Session) error {
			var err error
			stats, err = scraper.New(session, st, opts).Run(ctx, queries)
			return err
		})
		t2 := time.Now()

		slog.Info("scrape finished", "stats", stats, "records", st.Len(), "seconds", t2.Sub(t1).Seconds())

		if errors.Is(err, context.Canceled) {
			// the interrupted query, if any, runs again on resume
			slog.Warn("scrape interrupted", "resume_with", *scrapeSkip+stats.Completed)
			return nil
		}
		if err != nil {
			return fmt.Errorf("scrape failed: %w", err)
		}
		return nil
	},
}
