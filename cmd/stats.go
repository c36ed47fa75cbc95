package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seckatie/xmarkd/internal/core"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show bookmark statistics",
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

		stats, err := database.Stats()
		if err != nil {
			return core.NewDatabaseError("failed to read stats", err)
		}

		fmt.Printf("Total bookmarks: %d\n", stats.Total)
		if !stats.Oldest.IsZero() {
			fmt.Printf("Oldest bookmark: %s\n", stats.Oldest.Format("2006-01-02 15:04"))
			fmt.Printf("Newest bookmark: %s\n", stats.Newest.Format("2006-01-02 15:04"))
		}
		if len(stats.TopAuthors) > 0 {
			fmt.Println("\nTop authors:")
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, a := range stats.TopAuthors {
				fmt.Fprintf(w, "  @%s\t%d\n", a.Username, a.Count)
			}
			w.Flush()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
