package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seckatie/xmarkd/internal/core"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the full-text search index",
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

		if err := database.RebuildSearchIndex(); err != nil {
			return core.NewDatabaseError("failed to rebuild search index", err)
		}
		fmt.Println("Search index rebuilt")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
