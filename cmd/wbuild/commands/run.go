package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wright-pm/wright/pkg/orchestrator"
)

func newRunCommand() *cobra.Command {
	var (
		self       bool
		deps       bool
		dependents bool
		escalateD  bool
		escalateR  bool
		exact      bool
		depth      int
		stage      string
		only       string
		clean      bool
		force      bool
		jobs       int
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "run <target>...",
		Short: "Build one or more plan targets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context(), installRun)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			opts := orchestrator.BuildOptions{
				Targets: args,
				Scope: orchestrator.Scope{
					Self:       self,
					Deps:       deps,
					Dependents: dependents,
					EscalateD:  escalateD,
					EscalateR:  escalateR,
					Depth:      depth,
					Exact:      exact,
				},
				Stage:   stage,
				Only:    only,
				Clean:   clean,
				Force:   force,
				Jobs:    jobs,
				Install: installRun,
				Quiet:   quiet,
			}

			result, err := a.orchestrator().Run(ctx, opts)
			if err != nil {
				return err
			}
			if !quiet {
				for key, report := range result.Reports {
					if report.CacheHit {
						fmt.Printf("%s: cache hit\n", key)
						continue
					}
					fmt.Printf("%s: built in %s -> %s\n", key, report.Duration.Round(time.Millisecond), report.ArchivePath)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&self, "self", false, "build only the named targets, no expansion")
	cmd.Flags().BoolVar(&deps, "deps", false, "pull in missing build/link dependencies")
	cmd.Flags().BoolVar(&dependents, "dependents", false, "pull in packages that depend on the targets")
	cmd.Flags().BoolVarP(&escalateD, "force-deps", "D", false, "rebuild already-installed dependencies too")
	cmd.Flags().BoolVarP(&escalateR, "force-dependents", "R", false, "add runtime/build dependents, not just link")
	cmd.Flags().BoolVar(&exact, "exact", false, "opt out of all target expansion")
	cmd.Flags().IntVar(&depth, "depth", 0, "limit expansion to N hops (0 = unlimited)")
	cmd.Flags().StringVar(&stage, "stage", "", "run exactly this stage, bypassing the cache")
	cmd.Flags().StringVar(&only, "only", "", "limit the stage pipeline to this named stage")
	cmd.Flags().BoolVar(&clean, "clean", false, "discard cached build artifacts before building")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "rebuild even if a cache entry is valid")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "worker pool override (0 = configured default)")
	cmd.Flags().BoolVar(&installRun, "install", false, "install each package immediately after it builds")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the construction plan printout")

	return cmd
}
