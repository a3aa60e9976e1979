package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search installed packages by name or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			term := strings.ToLower(args[0])
			pkgs, err := a.st.ListPackages(ctx)
			if err != nil {
				return err
			}
			for _, p := range pkgs {
				if strings.Contains(strings.ToLower(p.Name), term) || strings.Contains(strings.ToLower(p.Description), term) {
					fmt.Printf("%s %s-%d  %s\n", p.Name, p.Version, p.Release, p.Description)
				}
			}
			return nil
		},
	}
	return cmd
}
