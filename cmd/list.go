package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seckatie/xmarkd/internal/core"
	"github.com/seckatie/xmarkd/internal/core/db"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored bookmarks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := initDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		opts := db.ListOptions{}
		if v, _ := cmd.Flags().GetString("since"); v != "" {
			t, err := parseTimeFlag(v)
			if err != nil {
				return err
			}
			opts.Since = t
		}
		opts.AfterTweetID, _ = cmd.Flags().GetString("after-tweet")
		opts.Author, _ = cmd.Flags().GetString("author")
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.UnprocessedOnly, _ = cmd.Flags().GetBool("unprocessed")

		format, _ := cmd.Flags().GetString("format")
		// Downstream pipelines read the unprocessed queue as JSON.
		if opts.UnprocessedOnly && !cmd.Flags().Changed("format") {
			format = core.FormatJSON
		}

		bookmarks, err := database.ListBookmarks(opts)
		if err != nil {
			return core.NewDatabaseError("failed to list bookmarks", err)
		}

		if format == core.FormatTable {
			fmt.Print(core.RenderTable(bookmarks))
			return nil
		}
		out, err := core.FormatBookmarks(bookmarks, format)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().String("since", "", "Only bookmarks saved after this date")
	listCmd.Flags().String("after-tweet", "", "Only bookmarks saved after this tweet ID")
	listCmd.Flags().String("author", "", "Filter by author username")
	listCmd.Flags().IntP("limit", "n", 0, "Maximum number of bookmarks")
	listCmd.Flags().Bool("unprocessed", false, "Only unprocessed bookmarks (defaults to JSON output)")
	listCmd.Flags().StringP("format", "f", core.FormatTable, "Output format: table, json, csv, md")
}
