package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all installed packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			pkgs, err := a.st.ListPackages(ctx)
			if err != nil {
				return err
			}
			for _, p := range pkgs {
				fmt.Printf("%s %s-%d %s\n", p.Name, p.Version, p.Release, p.Arch)
			}
			return nil
		},
	}
	return cmd
}
