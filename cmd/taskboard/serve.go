package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zsiec/taskboard/internal/web"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard widget over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := web.New(a.cfg, a.log, a.controller, a.health)
			if err != nil {
				return err
			}

			a.controller.Mount(ctx)

			if err := srv.Start(ctx); err != nil {
				return err
			}
			a.log.Info("Server shutdown complete")
			return nil
		},
	}
}
