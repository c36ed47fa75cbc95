package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seckatie/xmarkd/internal/core"
	"github.com/seckatie/xmarkd/internal/core/session"
)

var importSessionCmd = &cobra.Command{
	Use:   "import-session <state-file>",
	Short: "Import a browser session for syncing",
	Long: `Import a storage-state file exported from a logged-in browser. The
file must contain the x.com auth_token cookie; it is validated and
copied into the data directory with owner-only permissions.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		state, err := session.Load(args[0])
		if err != nil {
			return core.NewInvalidInputError("failed to read session file", err)
		}
		if err := state.Validate(); err != nil {
			return core.NewAuthError(
				"session file has no auth_token cookie; export it from a logged-in x.com browser session", err)
		}

		if err := state.Save(cfg.SessionPath()); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		fmt.Printf("Session imported to %s\n", cfg.SessionPath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importSessionCmd)
}
