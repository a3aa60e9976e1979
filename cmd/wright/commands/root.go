// Package commands implements the wright CLI: install, upgrade, remove,
// sysupgrade, list, query, search, files, owner, verify, deps, doctor,
// assume, and unassume, each a thin cobra wrapper over pkg/installer
// and pkg/store.
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
		Use:   "wright",
		Short: "Wright package manager",
		Long: `Wright installs, upgrades, and removes packages built from plans on a
Linux-from-scratch style system, tracking file ownership, dependency
edges, and file shadows in a local database.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/wright/wright.toml", "path to wright.toml")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "/", "filesystem root to operate on")
	rootCmd.PersistentFlags().StringVar(&reposPath, "repos", "", "path to repos.toml (default: repos.toml next to --config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "accepted but has no effect; output is always plain text")

	rootCmd.AddCommand(newInstallCommand())
	rootCmd.AddCommand(newUpgradeCommand())
	rootCmd.AddCommand(newRemoveCommand())
	rootCmd.AddCommand(newSysupgradeCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newQueryCommand())
	rootCmd.AddCommand(newSearchCommand())
	rootCmd.AddCommand(newFilesCommand())
	rootCmd.AddCommand(newOwnerCommand())
	rootCmd.AddCommand(newVerifyCommand())
	rootCmd.AddCommand(newDepsCommand())
	rootCmd.AddCommand(newDoctorCommand())
	rootCmd.AddCommand(newAssumeCommand())
	rootCmd.AddCommand(newUnassumeCommand())

	return rootCmd
}
