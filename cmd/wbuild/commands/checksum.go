package commands

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wright-pm/wright/pkg/plan"
	"github.com/wright-pm/wright/pkg/werr"
)

func newChecksumCommand() *cobra.Command {
	var update bool

	cmd := &cobra.Command{
		Use:   "checksum <target>...",
		Short: "Verify or recompute a plan's source checksums",
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

				if !update {
					if err := a.bld.Fetch(ctx, p, p.Dir); err != nil {
						return err
					}
					if err := a.bld.Verify(p); err != nil {
						return err
					}
					fmt.Printf("%s: checksums OK\n", p.Name)
					continue
				}

				// Fetch with verification off so an outdated checksum does
				// not stop the recompute below.
				fetchPlan := *p
				fetchPlan.Sources = make([]plan.Source, len(p.Sources))
				for i, s := range p.Sources {
					s.SHA256 = "SKIP"
					fetchPlan.Sources[i] = s
				}
				if err := a.bld.Fetch(ctx, &fetchPlan, p.Dir); err != nil {
					return err
				}
				changed, err := recomputeChecksums(a, p)
				if err != nil {
					return err
				}
				if !changed {
					fmt.Printf("%s: checksums already up to date\n", p.Name)
					continue
				}

				out, err := plan.Format(p)
				if err != nil {
					return err
				}
				planPath := filepath.Join(p.Dir, "plan.toml")
				if err := os.WriteFile(planPath, out, 0o644); err != nil {
					return werr.New(werr.KindValidation, "failed to write "+planPath, err)
				}
				fmt.Printf("%s: updated %s\n", p.Name, planPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&update, "update", false, "recompute and rewrite outdated checksums instead of verifying")
	return cmd
}

// recomputeChecksums fetches each non-SKIP source from the cache and
// overwrites p.Sources[i].SHA256 in place with the actual digest,
// reporting whether anything changed.
func recomputeChecksums(a *app, p *plan.Plan) (bool, error) {
	changed := false
	for i := range p.Sources {
		if p.Sources[i].SHA256 == "SKIP" {
			continue
		}
		path := a.bld.SourceCachePath(p, p.Sources[i])
		actual, err := sha256File(path)
		if err != nil {
			return false, werr.New(werr.KindChecksum, "failed to hash source "+filepath.Base(path), err).WithPackage(p.Name)
		}
		if actual != p.Sources[i].SHA256 {
			p.Sources[i].SHA256 = actual
			changed = true
		}
	}
	return changed, nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
