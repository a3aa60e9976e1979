package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wright-pm/wright/pkg/werr"
)

func newFetchCommand() *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "fetch <target>...",
		Short: "Download or copy every source a plan names into the source cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			for _, target := range args {
				p, ok := a.cache.Lookup(target)
				if !ok {
					return werr.New(werr.KindValidation, "no plan named "+target, nil)
				}
				a.logger.WithPackageName(p.Name).Info("fetching sources")
				if err := a.bld.Fetch(ctx, p, p.Dir); err != nil {
					return err
				}
				if verify {
					if err := a.bld.Verify(p); err != nil {
						return err
					}
				}
				fmt.Printf("%s: fetched %d source(s)\n", p.Name, len(p.Sources))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "also verify checksums after fetching")
	return cmd
}
