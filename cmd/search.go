package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seckatie/xmarkd/internal/core"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over stored bookmarks",
	Long: `Search bookmark text and author names. The query uses SQLite FTS5
syntax, so phrases ("exact phrase"), prefixes (term*), and boolean
operators (AND, OR, NOT) all work.`,
	Args: cobra.ExactArgs(1),
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

		limit, _ := cmd.Flags().GetInt("limit")
		results, err := database.Search(args[0], limit)
		if err != nil {
			return core.NewDatabaseError("search failed", err)
		}

		format, _ := cmd.Flags().GetString("format")
		if format == core.FormatTable {
			fmt.Print(core.RenderTable(results))
			return nil
		}
		out, err := core.FormatBookmarks(results, format)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntP("limit", "n", 50, "Maximum number of results")
	searchCmd.Flags().StringP("format", "f", core.FormatTable, "Output format: table, json, csv, md")
}
