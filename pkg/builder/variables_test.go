package builder

import (
	"testing"

	"github.com/wright-pm/wright/pkg/plan"
)

func TestStandardVariablesBasic(t *testing.T) {
	p := testPlan(t, t.TempDir())
	vars := StandardVariables(p, "/src", "/pkg", "/files", 4, "-O2", "-O2", plan.PhaseFull)
	if vars["PKG_NAME"] != "hello" || vars["NPROC"] != "4" || vars["WRIGHT_BUILD_PHASE"] != "full" {
		t.Fatalf("unexpected vars: %+v", vars)
	}
	if _, ok := vars["WRIGHT_BOOTSTRAP_WITHOUT_GLIBC"]; ok {
		t.Fatal("did not expect any WRIGHT_BOOTSTRAP_WITHOUT_ vars outside MVP phase")
	}
}

func TestStandardVariablesMVPInjectsExcludedDeps(t *testing.T) {
	p := testPlan(t, t.TempDir())
	p.Dependencies.Build = []plan.Dependency{{Name: "glibc"}, {Name: "gcc"}}
	p.MVP = &plan.MVPOverlay{
		Dependencies: plan.Dependencies{Build: []plan.Dependency{{Name: "gcc"}}},
	}

	vars := StandardVariables(p, "/src", "/pkg", "/files", 4, "", "", plan.PhaseMVP)
	if vars["WRIGHT_BOOTSTRAP_WITHOUT_glibc"] != "1" {
		t.Fatalf("expected WRIGHT_BOOTSTRAP_WITHOUT_glibc=1, got vars: %+v", vars)
	}
	if _, ok := vars["WRIGHT_BOOTSTRAP_WITHOUT_gcc"]; ok {
		t.Fatal("gcc remains in the MVP overlay's build deps, should not be marked excluded")
	}
}
