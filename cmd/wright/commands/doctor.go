package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run a read-only integrity scan over the installed-package set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			report, err := a.in.Doctor(ctx)
			if err != nil {
				return err
			}

			clean := true
			if len(report.UnsatisfiedDeps) > 0 {
				clean = false
				fmt.Println("unsatisfied dependencies:")
				for _, d := range report.UnsatisfiedDeps {
					fmt.Printf("  %s\n", d)
				}
			}
			if len(report.CircularDeps) > 0 {
				clean = false
				fmt.Println("circular dependencies:")
				for _, cycle := range report.CircularDeps {
					fmt.Printf("  %s\n", strings.Join(cycle, " -> "))
				}
			}
			if len(report.OwnershipIssues) > 0 {
				clean = false
				fmt.Println("ownership issues:")
				for _, issue := range report.OwnershipIssues {
					fmt.Printf("  %s\n", issue)
				}
			}
			if len(report.ActiveShadows) > 0 {
				clean = false
				fmt.Println("active shadows:")
				for _, s := range report.ActiveShadows {
					fmt.Printf("  %s\n", s)
				}
			}

			if clean {
				fmt.Println("no issues found")
				return nil
			}
			cmd.SilenceUsage = true
			return fmt.Errorf("doctor found one or more issues")
		},
	}
	return cmd
}
