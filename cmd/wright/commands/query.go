package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wright-pm/wright/pkg/werr"
)

func newQueryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <package>",
		Short: "Print detailed information about an installed package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			pkg, ok, err := a.st.LookupByName(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return werr.New(werr.KindValidation, "package not installed: "+args[0], nil)
			}

			deps, err := a.st.DependenciesOf(ctx, pkg.Name)
			if err != nil {
				return err
			}

			fmt.Printf("Name        : %s\n", pkg.Name)
			fmt.Printf("Version     : %s-%d\n", pkg.Version, pkg.Release)
			fmt.Printf("Architecture: %s\n", pkg.Arch)
			fmt.Printf("Description : %s\n", pkg.Description)
			fmt.Printf("License     : %s\n", pkg.License)
			fmt.Printf("URL         : %s\n", pkg.URL)
			fmt.Printf("Maintainer  : %s\n", pkg.Maintainer)
			fmt.Printf("Installed   : %s\n", pkg.InstalledAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("Install size: %d bytes\n", pkg.InstallSize)
			fmt.Printf("Dependencies:\n")
			for _, d := range deps {
				constraint := d.VersionConstraint
				if constraint == "" {
					fmt.Printf("  %s (%s)\n", d.DependsOn, d.Kind)
				} else {
					fmt.Printf("  %s %s (%s)\n", d.DependsOn, constraint, d.Kind)
				}
			}
			return nil
		},
	}
	return cmd
}
