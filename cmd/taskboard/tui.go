package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zsiec/taskboard/internal/tui"
)

func tuiCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the dashboard in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			// Console logging would draw over the UI.
			if out := a.cfg.Logging.Output; out == "stdout" || out == "stderr" {
				a.log.SetOutput(io.Discard)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			model := tui.New(ctx, a.controller, a.cfg.Dashboard)
			a.controller.Mount(ctx)

			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil && ctx.Err() == nil {
				return fmt.Errorf("terminal UI: %w", err)
			}
			return nil
		},
	}
}
