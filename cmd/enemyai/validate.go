package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/zeusync/enemyai/internal/core/npc"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file|dir>...",
		Short: "Build templates without running them",
		Long: `Loads and builds every template file given, or every template in a
directory, and reports the name and fingerprint of each. Exits non-zero if
any of them fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args)
		},
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	b := npc.NewBuilder()
	out := cmd.OutOrStdout()

	var errs []error
	for _, path := range args {
		if err := validatePath(cmd, b, out, path); err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

func validatePath(cmd *cobra.Command, b *npc.Builder, out io.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		t, err := b.BuildFile(path)
		if err != nil {
			return err
		}
		printTemplate(out, t, path)
		return nil
	}

	reg := npc.NewTemplateRegistry()
	if _, err = b.LoadTemplates(cmd.Context(), path, reg); err != nil {
		return err
	}
	for _, name := range reg.Names() {
		t, _ := reg.Get(name)
		printTemplate(out, t, path)
	}
	return nil
}

func printTemplate(out io.Writer, t *npc.Template, path string) {
	fmt.Fprintf(out, "ok   %-16s %016x  %s\n", t.Name(), t.Fingerprint(), path)
}
