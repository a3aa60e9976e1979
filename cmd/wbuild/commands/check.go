package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wright-pm/wright/pkg/orchestrator"
)

func newCheckCommand() *cobra.Command {
	var (
		deps       bool
		dependents bool
		exact      bool
	)

	cmd := &cobra.Command{
		Use:   "check <target>...",
		Short: "Resolve and print the construction plan without building anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			opts := orchestrator.BuildOptions{
				Targets: args,
				Scope: orchestrator.Scope{
					Deps:       deps,
					Dependents: dependents,
					Exact:      exact,
				},
				Lint: true,
			}

			result, err := a.orchestrator().Run(ctx, opts)
			if err != nil {
				return err
			}
			fmt.Printf("%d job(s) would run\n", len(result.Plan))
			return nil
		},
	}

	cmd.Flags().BoolVar(&deps, "deps", false, "pull in missing build/link dependencies")
	cmd.Flags().BoolVar(&dependents, "dependents", false, "pull in packages that depend on the targets")
	cmd.Flags().BoolVar(&exact, "exact", false, "opt out of all target expansion")
	return cmd
}
