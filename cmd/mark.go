package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seckatie/xmarkd/internal/core"
)

var markProcessedCmd = &cobra.Command{
	Use:   "mark-processed <tweet-id>...",
	Short: "Mark bookmarks as processed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setProcessed(cmd, args, true)
	},
}

var markUnprocessedCmd = &cobra.Command{
	Use:   "mark-unprocessed <tweet-id>...",
	Short: "Clear the processed flag on bookmarks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setProcessed(cmd, args, false)
	},
}

func setProcessed(cmd *cobra.Command, tweetIDs []string, processed bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	database, err := initDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	updated := 0
	for _, id := range tweetIDs {
		var found bool
		var err error
		if processed {
			found, err = database.MarkProcessed(id)
		} else {
			found, err = database.MarkUnprocessed(id)
		}
		if err != nil {
			return core.NewDatabaseError("failed to update bookmark", err)
		}
		if !found {
			fmt.Printf("Warning: no bookmark with tweet ID %s\n", id)
			continue
		}
		updated++
	}
	if processed {
		fmt.Printf("Marked %d bookmarks as processed\n", updated)
	} else {
		fmt.Printf("Marked %d bookmarks as unprocessed\n", updated)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(markProcessedCmd)
	rootCmd.AddCommand(markUnprocessedCmd)
}
