package main

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "enemyai",
		Short: "Behaviour-tree enemy AI engine",
		Long: `enemyai builds behaviour-tree templates from YAML or JSON files and ticks
one tree instance per enemy against a simulated player.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "config file (yaml, json or toml); ENEMYAI_* env vars override it")
	root.AddCommand(newRunCmd(), newValidateCmd())
	return root
}
