// Package commands implements the wbuild CLI: run, check, fetch, deps,
// and checksum, each driving pkg/orchestrator, pkg/builder, or pkg/plan
// directly.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wbuild",
		Short: "Wright build tool",
		Long: `wbuild turns a set of plan targets into a dependency-ordered
construction plan and drives it through fetch, verify, extract, the
stage pipeline, and final packaging.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/wright/wright.toml", "path to wright.toml")
	rootCmd.PersistentFlags().StringVar(&holdDir, "plans-dir", "", "plans directory (default: wright.toml's general.plans_dir)")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newFetchCommand())
	rootCmd.AddCommand(newDepsCommand())
	rootCmd.AddCommand(newChecksumCommand())

	return rootCmd
}
