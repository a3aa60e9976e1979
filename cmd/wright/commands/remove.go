package commands

import (
	"github.com/spf13/cobra"

	"github.com/wright-pm/wright/pkg/installer"
)

func newRemoveCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "remove <package>...",
		Short: "Uninstall one or more packages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			for _, name := range args {
				a.logger.WithPackageName(name).Info("removing package")
				if err := a.in.Remove(ctx, name, installer.RemoveOptions{Force: force}); err != nil {
					a.logger.WithError(err).Error("remove failed")
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "remove even if other installed packages still depend on it")
	return cmd
}
