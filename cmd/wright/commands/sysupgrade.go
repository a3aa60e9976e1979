package commands

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wright-pm/wright/pkg/archive"
	"github.com/wright-pm/wright/pkg/installer"
	"github.com/wright-pm/wright/pkg/version"
	"github.com/wright-pm/wright/pkg/wconfig"
	"github.com/wright-pm/wright/pkg/werr"
)

func newSysupgradeCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sysupgrade",
		Short: "Upgrade every installed package for which a newer archive exists in a configured repo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			repos, err := a.repos()
			if err != nil {
				return err
			}
			if len(repos) == 0 {
				a.logger.Info("no repos configured, nothing to upgrade")
				return nil
			}

			candidates, err := newestArchivesByName(repos)
			if err != nil {
				return err
			}

			installed, err := a.st.ListPackages(ctx)
			if err != nil {
				return err
			}

			upgraded := 0
			for _, pkg := range installed {
				cand, ok := candidates[pkg.Name]
				if !ok {
					continue
				}
				installedVer, err := version.Parse(pkg.Version)
				if err != nil {
					return werr.New(werr.KindValidation, "installed package has unparseable version", err).WithPackage(pkg.Name)
				}
				if !force && !cand.version.Greater(installedVer) {
					continue
				}
				a.logger.WithPackageName(pkg.Name).
					WithField("from", pkg.Version).
					WithField("to", cand.version.String()).
					Info("upgrading package")
				if err := a.in.Upgrade(ctx, cand.path, installer.UpgradeOptions{Force: force}); err != nil {
					a.logger.WithError(err).Error("sysupgrade failed")
					return err
				}
				upgraded++
			}

			a.logger.WithField("upgraded", upgraded).Info("sysupgrade complete")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "bypass the new-version-must-exceed-old check")
	return cmd
}

type archiveCandidate struct {
	path    string
	version version.Version
}

// newestArchivesByName scans every repo directory (earlier repos taking
// priority on a tie) and keeps, per package name, the highest version
// seen across all of them.
func newestArchivesByName(repos []wconfig.Repo) (map[string]archiveCandidate, error) {
	out := make(map[string]archiveCandidate)
	for _, r := range repos {
		entries, err := os.ReadDir(r.Path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, werr.New(werr.KindValidation, "failed to read repo directory "+r.Path, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".wright.tar.zst") {
				continue
			}
			full := filepath.Join(r.Path, e.Name())
			info, err := archive.ReadPkgInfo(full)
			if err != nil {
				continue
			}
			v, err := version.Parse(info.Version)
			if err != nil {
				continue
			}
			cur, ok := out[info.Name]
			if !ok || v.Greater(cur.version) {
				out[info.Name] = archiveCandidate{path: full, version: v}
			}
		}
	}
	return out, nil
}
