package commands

import (
	"github.com/spf13/cobra"

	"github.com/wright-pm/wright/pkg/installer"
)

func newInstallCommand() *cobra.Command {
	var (
		force    bool
		skipDeps bool
	)

	cmd := &cobra.Command{
		Use:   "install <archive>...",
		Short: "Install one or more built package archives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			for _, archivePath := range args {
				a.logger.WithField("archive", archivePath).Info("installing package")
				if err := a.in.Install(ctx, archivePath, installer.InstallOptions{Force: force, SkipDeps: skipDeps}); err != nil {
					a.logger.WithError(err).Error("install failed")
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "install over file conflicts, recording them as shadows")
	cmd.Flags().BoolVar(&skipDeps, "skip-deps", false, "skip the dependency presence and version check")
	return cmd
}
