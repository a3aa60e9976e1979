package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wright-pm/wright/pkg/store"
	"github.com/wright-pm/wright/pkg/version"
	"github.com/wright-pm/wright/pkg/werr"
)

// DoctorReport summarizes the four checks spec's doctor scan runs. It is
// read-only: Doctor never mutates the store or the filesystem.
type DoctorReport struct {
	UnsatisfiedDeps  []string
	CircularDeps     [][]string
	OwnershipIssues  []string
	ActiveShadows    []string
}

// Doctor runs a read-only integrity scan over the installed-package set:
// unsatisfied dependency constraints, circular dependency edges among
// installed packages, file-ownership conflicts, and active shadows.
func (in *Installer) Doctor(ctx context.Context) (DoctorReport, error) {
	var report DoctorReport

	packages, err := in.st.ListPackages(ctx)
	if err != nil {
		return report, err
	}

	depsByPkg := make(map[string][]store.Dependency, len(packages))
	installedVersion := make(map[string]string, len(packages))
	for _, pkg := range packages {
		installedVersion[pkg.Name] = pkg.Version
		deps, err := in.st.DependenciesOf(ctx, pkg.Name)
		if err != nil {
			return report, err
		}
		depsByPkg[pkg.Name] = deps
	}

	for _, pkg := range packages {
		for _, dep := range depsByPkg[pkg.Name] {
			installedVer, ok := installedVersion[dep.DependsOn]
			if !ok {
				if _, provided, err := in.st.ProviderOf(ctx, dep.DependsOn); err == nil && provided {
					continue
				}
				report.UnsatisfiedDeps = append(report.UnsatisfiedDeps,
					fmt.Sprintf("%s requires %s, which is not installed", pkg.Name, dep.DependsOn))
				continue
			}
			if dep.VersionConstraint == "" {
				continue
			}
			constraint, err := version.ParseConstraint(dep.VersionConstraint)
			if err != nil {
				continue
			}
			v, err := version.Parse(installedVer)
			if err != nil {
				continue
			}
			if !constraint.Satisfies(v) {
				report.UnsatisfiedDeps = append(report.UnsatisfiedDeps,
					fmt.Sprintf("%s requires %s %s, installed is %s", pkg.Name, dep.DependsOn, constraint, installedVer))
			}
		}
	}

	report.CircularDeps = findCycles(depsByPkg)

	for _, pkg := range packages {
		files, err := in.st.FilesOf(ctx, pkg.Name)
		if err != nil {
			return report, err
		}
		for _, f := range files {
			owner, ok, err := in.st.OwnerOfPath(ctx, f.Path)
			if err != nil {
				return report, err
			}
			if ok && owner != pkg.Name {
				report.OwnershipIssues = append(report.OwnershipIssues,
					fmt.Sprintf("file %q recorded under %s but owned by %s", f.Path, pkg.Name, owner))
			}
		}
	}

	report.ActiveShadows, err = in.st.ShadowConflicts(ctx)
	if err != nil {
		return report, err
	}

	return report, nil
}

// findCycles runs DFS over the installed dependency graph and returns
// every cycle it encounters as the ordered chain of package names that
// closes it.
func findCycles(depsByPkg map[string][]store.Dependency) [][]string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(depsByPkg))
	var cycles [][]string

	var visit func(name string, path []string)
	visit = func(name string, path []string) {
		color[name] = gray
		path = append(path, name)
		for _, dep := range depsByPkg[name] {
			switch color[dep.DependsOn] {
			case white:
				if _, known := depsByPkg[dep.DependsOn]; known {
					visit(dep.DependsOn, path)
				}
			case gray:
				for i, p := range path {
					if p == dep.DependsOn {
						cycle := append(append([]string{}, path[i:]...), dep.DependsOn)
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}
		color[name] = black
	}

	for name := range depsByPkg {
		if color[name] == white {
			visit(name, nil)
		}
	}
	return cycles
}

// Verify checks that a package's recorded file manifest still matches
// the live filesystem: missing entries, content/target drift, and
// unreadable paths are all reported as issue strings rather than
// treated as fatal errors.
func (in *Installer) Verify(ctx context.Context, name string) ([]string, error) {
	if _, ok, err := in.st.LookupByName(ctx, name); err != nil {
		return nil, err
	} else if !ok {
		return nil, werr.New(werr.KindValidation, fmt.Sprintf("package %q is not installed", name), nil).WithPackage(name)
	}

	files, err := in.st.FilesOf(ctx, name)
	if err != nil {
		return nil, err
	}

	var issues []string
	for _, f := range files {
		full := filepath.Join(in.cfg.RootDir, filepath.Clean(f.Path))
		info, err := os.Lstat(full)
		if err != nil {
			issues = append(issues, "MISSING: "+f.Path)
			continue
		}
		switch f.Kind {
		case store.FileRegular:
			actual, err := sha256File(full)
			if err != nil {
				issues = append(issues, "UNREADABLE: "+f.Path)
				continue
			}
			if actual != f.Hash {
				issues = append(issues, "MODIFIED: "+f.Path)
			}
		case store.FileSymlink:
			if info.Mode()&os.ModeSymlink == 0 {
				issues = append(issues, "MODIFIED: "+f.Path)
				continue
			}
			target, err := os.Readlink(full)
			if err != nil {
				issues = append(issues, "UNREADABLE: "+f.Path)
				continue
			}
			if target != f.Hash {
				issues = append(issues, "MODIFIED: "+f.Path)
			}
		}
	}
	return issues, nil
}
