// Package main is the entry point for the CohortScope server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "cohortscope",
		Short:         "Patient story dashboard over synthetic single-cell cohorts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/server.yaml", "Path to configuration file")

	serve := newServeCommand(&configPath)
	root.AddCommand(serve, newGenerateCommand(), newTUICommand(&configPath))

	// Running the binary without a subcommand starts the server.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	return root
}
