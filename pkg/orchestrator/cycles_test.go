package orchestrator

import (
	"sort"
	"testing"

	"github.com/wright-pm/wright/pkg/plan"
)

func TestTarjanSCCFindsTwoCycle(t *testing.T) {
	edges := map[string][]string{
		"a": {"b"},
		"b": {"a"},
		"c": {},
	}
	sccs := tarjanSCC([]string{"a", "b", "c"}, edges)

	var cyclic []string
	for _, comp := range sccs {
		if len(comp) >= 2 {
			cyclic = comp
		}
	}
	sort.Strings(cyclic)
	if len(cyclic) != 2 || cyclic[0] != "a" || cyclic[1] != "b" {
		t.Fatalf("expected {a,b} as a cycle, got sccs=%v", sccs)
	}
}

func TestTarjanSCCNoCycleInDAG(t *testing.T) {
	edges := map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {},
	}
	sccs := tarjanSCC([]string{"a", "b", "c"}, edges)
	for _, comp := range sccs {
		if len(comp) >= 2 {
			t.Fatalf("expected no multi-member SCC in a DAG, got %v", sccs)
		}
	}
}

func mustParsePlan(t *testing.T, toml string) *plan.Plan {
	t.Helper()
	p, err := plan.Parse([]byte(toml), t.TempDir())
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	return p
}

func TestPickMVPCandidateOnlyMemberWithUsableOverlay(t *testing.T) {
	a := mustParsePlan(t, `
name = "a"
version = "1.0"
release = 1
arch = "x86_64"
description = "d"
license = "MIT"

[dependencies]
build = ["b"]

[mvp.lifecycle.compile]
executor = "bash"
script = "true"

[mvp.dependencies]
build = []
`)
	b := mustParsePlan(t, `
name = "b"
version = "1.0"
release = 1
arch = "x86_64"
description = "d"
license = "MIT"

[dependencies]
build = ["a"]
`)

	cand, removed := pickMVPCandidate([]string{"a", "b"}, map[string]*plan.Plan{"a": a, "b": b})
	if cand == nil || cand.Name != "a" {
		t.Fatalf("expected a to be the MVP candidate (only one with a usable overlay), got %v", cand)
	}
	if len(removed) != 1 || removed[0] != "b" {
		t.Fatalf("expected removed edges [b], got %v", removed)
	}
}

func TestPickMVPCandidateNoneWhenNoOverlayBreaksCycle(t *testing.T) {
	a := mustParsePlan(t, `
name = "a"
version = "1.0"
release = 1
arch = "x86_64"
description = "d"
license = "MIT"

[dependencies]
build = ["b"]
`)
	b := mustParsePlan(t, `
name = "b"
version = "1.0"
release = 1
arch = "x86_64"
description = "d"
license = "MIT"

[dependencies]
build = ["a"]
`)

	cand, _ := pickMVPCandidate([]string{"a", "b"}, map[string]*plan.Plan{"a": a, "b": b})
	if cand != nil {
		t.Fatalf("expected no MVP candidate when neither plan declares an overlay, got %v", cand)
	}
}
