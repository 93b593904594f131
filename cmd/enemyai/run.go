package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zeusync/enemyai/internal/config"
	"github.com/zeusync/enemyai/internal/injector"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation",
		Long: `Spawns a ring of enemies around the player, ticks their trees at the
configured rate and streams every tick to websocket watchers.`,
		Args: cobra.NoArgs,
		RunE: runSimulation,
	}
	f := cmd.Flags()
	f.String("templates", "", "template directory (overrides templates.dir)")
	f.String("template", "", "template spawned enemies run (overrides templates.default)")
	f.Int("enemies", 0, "number of enemies (overrides simulation.enemies)")
	f.Uint64("ticks", 0, "stop after this many ticks (overrides simulation.ticks)")
	f.Int("workers", 0, "tick workers (overrides scheduler.workers)")
	f.Bool("no-watch", false, "disable the watch server")
	return cmd
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	app, cleanup, err := injector.InitializeApp(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer cleanup()
	return app.Run(cmd.Context())
}

// loadConfig reads --config and applies the flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("templates") {
		cfg.Templates.Dir, _ = f.GetString("templates")
	}
	if f.Changed("template") {
		cfg.Templates.Default, _ = f.GetString("template")
	}
	if f.Changed("enemies") {
		cfg.Simulation.Enemies, _ = f.GetInt("enemies")
	}
	if f.Changed("ticks") {
		cfg.Simulation.Ticks, _ = f.GetUint64("ticks")
	}
	if f.Changed("workers") {
		cfg.Scheduler.Workers, _ = f.GetInt("workers")
	}
	if noWatch, _ := f.GetBool("no-watch"); noWatch {
		cfg.Watch.Enabled = false
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
