package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seckatie/xmarkd/internal/core"
	"github.com/seckatie/xmarkd/internal/core/db"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync bookmarks from X/Twitter",
	Long: `Open the bookmarks timeline in a browser using the imported session
and capture bookmarks as the page loads them. By default the sync stops
at the first bookmark already in the database; --all walks the whole
timeline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		database, err := initDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		opts := core.DefaultCrawlOptions()
		opts.IdleThreshold = cfg.Crawl.IdleThreshold.Std()
		opts.StabilityCycles = cfg.Crawl.StabilityCycles
		opts.SettleDelay = cfg.Crawl.SettleDelay.Std()
		opts.InitialWait = cfg.Crawl.InitialWait.Std()
		opts.Headless = cfg.Crawl.Headless
		opts.ChromePath = cfg.Crawl.ChromePath
		opts.SyncAll, _ = cmd.Flags().GetBool("all")
		if visible, _ := cmd.Flags().GetBool("visible"); visible {
			opts.Headless = false
		}
		if path, _ := cmd.Flags().GetString("chrome-path"); path != "" {
			opts.ChromePath = path
		}

		database.RegisterEventListener(db.OnBookmarkSavedEvent, func(event db.Event) error {
			ev := event.(db.BookmarkSavedEvent)
			fmt.Printf("  + @%s: %s\n", ev.Bookmark.AuthorUsername, firstLine(ev.Bookmark.Text, 70))
			return nil
		})

		ctx := cmd.Context()
		if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		crawler := core.NewCrawler(database, cfg.SessionPath(), opts, log)
		result, err := crawler.Sync(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("\nSynced %d new bookmarks (%s)\n", result.NewBookmarks, result.StopReason)

		if enrich, _ := cmd.Flags().GetBool("enrich"); enrich && result.NewBookmarks > 0 {
			enrichOpts := core.DefaultEnrichOptions()
			enrichOpts.Timeout = cfg.Enrich.Timeout.Std()
			enrichOpts.SkipDomains = cfg.Enrich.SkipDomains
			enrichOpts.IncludeSummary, _ = cmd.Flags().GetBool("enrich-summary")

			enricher := core.NewEnricher(database, enrichOpts, log)
			n, err := enricher.EnrichAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Enriched %d bookmarks\n", n)
		}
		return nil
	},
}

func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > max {
		return string(r[:max-3]) + "..."
	}
	return s
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("all", false, "Walk the whole timeline instead of stopping at known bookmarks")
	syncCmd.Flags().Bool("visible", false, "Run the browser with a visible window")
	syncCmd.Flags().Bool("enrich", false, "Fetch URL metadata for new bookmarks after syncing")
	syncCmd.Flags().Bool("enrich-summary", false, "Include page text summaries when enriching")
	syncCmd.Flags().String("chrome-path", "", "Path to the Chrome/Chromium binary")
	syncCmd.Flags().Duration("timeout", 0, "Abort the sync after this duration (0 = no limit)")
}
