package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wright-pm/wright/pkg/plan"
	"github.com/wright-pm/wright/pkg/werr"
)

func newDepsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps <target>",
		Short: "Print a plan's declared dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			p, ok := a.cache.Lookup(args[0])
			if !ok {
				return werr.New(werr.KindValidation, "no plan named "+args[0], nil)
			}

			printDeps("build", p.Dependencies.Build)
			printDeps("link", p.Dependencies.Link)
			printDeps("runtime", p.Dependencies.Runtime)
			printDeps("optional", p.Dependencies.Optional)
			if len(p.Dependencies.Provides) > 0 {
				fmt.Println("provides:")
				for _, name := range p.Dependencies.Provides {
					fmt.Printf("  %s\n", name)
				}
			}
			return nil
		},
	}
	return cmd
}

func printDeps(kind string, deps []plan.Dependency) {
	if len(deps) == 0 {
		return
	}
	fmt.Printf("%s:\n", kind)
	for _, d := range deps {
		if d.Constraint == nil {
			fmt.Printf("  %s\n", d.Name)
		} else {
			fmt.Printf("  %s %s\n", d.Name, d.Constraint.String())
		}
	}
}
