package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDepsCommand() *cobra.Command {
	var reverse bool

	cmd := &cobra.Command{
		Use:   "deps <package>",
		Short: "List a package's dependencies, or with --reverse, its dependents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if reverse {
				names, err := a.st.DependentsOf(ctx, args[0], "")
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Println(n)
				}
				return nil
			}

			deps, err := a.st.DependenciesOf(ctx, args[0])
			if err != nil {
				return err
			}
			for _, d := range deps {
				if d.VersionConstraint == "" {
					fmt.Printf("%s (%s)\n", d.DependsOn, d.Kind)
				} else {
					fmt.Printf("%s %s (%s)\n", d.DependsOn, d.VersionConstraint, d.Kind)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "list packages that depend on this one instead")
	return cmd
}
