package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wright-pm/wright/pkg/werr"
)

func newOwnerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner <path>",
		Short: "Report which installed package currently owns a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			path := args[0]

			// A shadowed path's current owner is whoever shadowed it last,
			// not the original files-table owner; check shadows first so a
			// forced install is reflected immediately.
			shadows, err := a.st.ShadowsOfPath(ctx, path)
			if err != nil {
				return err
			}
			if len(shadows) > 0 {
				fmt.Println(shadows[0].ShadowedByPackage)
				return nil
			}

			owner, ok, err := a.st.OwnerOfPath(ctx, path)
			if err != nil {
				return err
			}
			if !ok {
				return werr.New(werr.KindValidation, "no installed package owns "+path, nil)
			}
			fmt.Println(owner)
			return nil
		},
	}
	return cmd
}
