package commands

import (
	"github.com/spf13/cobra"

	"github.com/wright-pm/wright/pkg/installer"
)

func newUpgradeCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "upgrade <archive>...",
		Short: "Replace an installed package's files with a newer archive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			for _, archivePath := range args {
				a.logger.WithField("archive", archivePath).Info("upgrading package")
				if err := a.in.Upgrade(ctx, archivePath, installer.UpgradeOptions{Force: force}); err != nil {
					a.logger.WithError(err).Error("upgrade failed")
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "bypass the new-version-must-exceed-old check")
	return cmd
}
