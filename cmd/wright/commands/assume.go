package commands

import (
	"github.com/spf13/cobra"
)

func newAssumeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assume <name> <version>",
		Short: "Record an externally-provided package as satisfying dependency checks",
		Long: `Assume records name/version as externally provided, satisfying
dependency and conflict checks against it without any file tracking —
used for base-system packages Wright did not itself install (glibc,
the kernel, and the like on a freshly bootstrapped system).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			return a.in.Assume(ctx, args[0], args[1])
		},
	}
	return cmd
}
