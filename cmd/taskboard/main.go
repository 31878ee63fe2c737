package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zsiec/taskboard/pkg/version"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "taskboard",
		Short:         "Tekton tasks dashboard",
		Version:       version.GetInfo().Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (YAML)")
	cmd.AddCommand(serveCmd(&configPath))
	cmd.AddCommand(tuiCmd(&configPath))
	cmd.AddCommand(versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetInfo().String())
		},
	}
}
