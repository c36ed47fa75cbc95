package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seckatie/xmarkd/internal/core/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the bookmarks JSON API",
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

		if v, _ := cmd.Flags().GetString("host"); v != "" {
			cfg.Serve.Host = v
		}
		if cmd.Flags().Changed("port") {
			cfg.Serve.Port, _ = cmd.Flags().GetInt("port")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		server := web.NewServer(database, cfg.Serve.Host, cfg.Serve.Port, log)
		err = server.ListenAndServe(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "", "Host to listen on")
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on")
}
