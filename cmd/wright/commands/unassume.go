package commands

import (
	"github.com/spf13/cobra"
)

func newUnassumeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unassume <name>",
		Short: "Remove a previously recorded assumption",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			return a.in.Unassume(ctx, args[0])
		},
	}
	return cmd
}
