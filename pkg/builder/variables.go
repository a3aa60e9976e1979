package builder

import (
	"fmt"

	"github.com/wright-pm/wright/pkg/plan"
)

// StandardVariables builds the fixed substitution map spec §4.7 step 6
// names, before any MVP-overlay WRIGHT_BOOTSTRAP_WITHOUT_<DEP> additions
// or dockyard remapping are layered on.
func StandardVariables(p *plan.Plan, srcDir, pkgDir, filesDir string, nproc int, cflags, cxxflags string, phase plan.Phase) map[string]string {
	vars := map[string]string{
		"PKG_NAME":           p.Name,
		"PKG_VERSION":        p.Version.String(),
		"PKG_RELEASE":        fmt.Sprintf("%d", p.Release),
		"PKG_ARCH":           p.Arch,
		"SRC_DIR":            srcDir,
		"PKG_DIR":            pkgDir,
		"FILES_DIR":          filesDir,
		"NPROC":              fmt.Sprintf("%d", nproc),
		"CFLAGS":             cflags,
		"CXXFLAGS":           cxxflags,
		"WRIGHT_BUILD_PHASE": string(phase),
	}
	if phase == plan.PhaseMVP && p.MVP != nil {
		for _, dep := range mvpExcludedDeps(p) {
			vars["WRIGHT_BOOTSTRAP_WITHOUT_"+dep] = "1"
		}
	}
	return vars
}

// mvpExcludedDeps returns the build/link/runtime dependency names present
// in the plan's main Dependencies but absent from the MVP overlay's
// replacement list for the same kind — the set spec §4.7 step 6 exposes
// as WRIGHT_BOOTSTRAP_WITHOUT_<DEP>=1 so stage scripts can branch on a
// dependency having been dropped for the bootstrap pass.
func mvpExcludedDeps(p *plan.Plan) []string {
	if p.MVP == nil {
		return nil
	}
	full := depNameSet(p.Dependencies.Build, p.Dependencies.Link, p.Dependencies.Runtime)
	mvp := depNameSet(p.MVP.Dependencies.Build, p.MVP.Dependencies.Link, p.MVP.Dependencies.Runtime)
	var out []string
	for name := range full {
		if !mvp[name] {
			out = append(out, name)
		}
	}
	return out
}

func depNameSet(lists ...[]plan.Dependency) map[string]bool {
	set := make(map[string]bool)
	for _, list := range lists {
		for _, d := range list {
			set[d.Name] = true
		}
	}
	return set
}
