package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seckatie/xmarkd/internal/core"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fetch metadata for URLs in stored bookmarks",
	Long: `Fetch each linked page and store its title and description alongside
the bookmark. Links into X/Twitter itself are skipped. Bookmarks that
already carry metadata are left alone unless --force is given.`,
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

		opts := core.DefaultEnrichOptions()
		opts.Timeout = cfg.Enrich.Timeout.Std()
		opts.SkipDomains = cfg.Enrich.SkipDomains
		opts.IncludeSummary, _ = cmd.Flags().GetBool("summary")
		opts.Force, _ = cmd.Flags().GetBool("force")

		enricher := core.NewEnricher(database, opts, log)
		n, err := enricher.EnrichAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Enriched %d bookmarks\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
	enrichCmd.Flags().Bool("summary", false, "Also store a page text summary")
	enrichCmd.Flags().Bool("force", false, "Re-fetch metadata even for already enriched bookmarks")
}
