package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <package>...",
		Short: "Check that a package's installed files still match its recorded manifest",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			dirty := false
			for _, name := range args {
				issues, err := a.in.Verify(ctx, name)
				if err != nil {
					return err
				}
				if len(issues) == 0 {
					fmt.Printf("%s: OK\n", name)
					continue
				}
				dirty = true
				fmt.Printf("%s:\n", name)
				for _, issue := range issues {
					fmt.Printf("  %s\n", issue)
				}
			}
			if dirty {
				cmd.SilenceUsage = true
				return fmt.Errorf("one or more packages failed verification")
			}
			return nil
		},
	}
	return cmd
}
