package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cohortscope/server/internal/config"
	"github.com/cohortscope/server/internal/generate"
	"github.com/cohortscope/server/internal/service"
	"github.com/cohortscope/server/internal/tui"
)

func newTUICommand(configPath *string) *cobra.Command {
	var seed uint64

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse the dashboard in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if seed == 0 {
				seed = cfg.Generator.Seed
			}
			model := tui.New(service.NewDashboardService(nil, nil), generate.NewSeeder(seed))
			_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Base of the seed sequence (0 uses the configured seed or the clock)")
	return cmd
}
