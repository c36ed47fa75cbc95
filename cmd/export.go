package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/seckatie/xmarkd/internal/core"
	"github.com/seckatie/xmarkd/internal/core/db"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export bookmarks to a file",
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
		opts.Author, _ = cmd.Flags().GetString("author")

		bookmarks, err := database.ListBookmarks(opts)
		if err != nil {
			return core.NewDatabaseError("failed to list bookmarks", err)
		}

		format, _ := cmd.Flags().GetString("format")
		out, err := core.FormatBookmarks(bookmarks, format)
		if err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("output")
		if path == "" {
			path = core.ExportFileName(format, time.Now())
		}
		if err := writeOutput(path, out); err != nil {
			return err
		}
		fmt.Printf("Exported %d bookmarks to %s\n", len(bookmarks), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("format", "f", core.FormatJSON, "Export format: json, csv, md")
	exportCmd.Flags().StringP("output", "o", "", "Output file path (default bookmarks_<timestamp>.<ext>)")
	exportCmd.Flags().String("since", "", "Only bookmarks saved after this date")
	exportCmd.Flags().String("author", "", "Filter by author username")
}
