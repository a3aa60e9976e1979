package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wright-pm/wright/pkg/werr"
)

func newFilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files <package>",
		Short: "List the files owned by an installed package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if _, ok, err := a.st.LookupByName(ctx, args[0]); err != nil {
				return err
			} else if !ok {
				return werr.New(werr.KindValidation, "package not installed: "+args[0], nil)
			}

			files, err := a.st.FilesOf(ctx, args[0])
			if err != nil {
				return err
			}
			for _, f := range files {
				marker := ""
				if f.IsConfig {
					marker = " [config]"
				}
				fmt.Printf("%s%s\n", f.Path, marker)
			}
			return nil
		},
	}
	return cmd
}
