package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wright-pm/wright/pkg/plan"
	"github.com/wright-pm/wright/pkg/werr"
)

// depEdges returns the build+link dependency names of p that are
// present in selected — the edges that matter for scheduling order.
func depEdges(p *plan.Plan, selected map[string]*plan.Plan) []string {
	var out []string
	seen := make(map[string]bool)
	for _, dep := range append(append([]plan.Dependency{}, p.Dependencies.Build...), p.Dependencies.Link...) {
		if _, ok := selected[dep.Name]; !ok || seen[dep.Name] {
			continue
		}
		seen[dep.Name] = true
		out = append(out, dep.Name)
	}
	sort.Strings(out)
	return out
}

// tarjanSCC computes strongly connected components of the directed
// graph described by edges (name -> dependency names), returning each
// component as a sorted name list. Singleton components are included
// so callers can distinguish them from self-loops.
func tarjanSCC(nodes []string, edges map[string][]string) [][]string {
	index := 0
	indices := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var sccs [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range edges[v] {
			if _, ok := indices[w]; !ok {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var comp []string
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			sort.Strings(comp)
			sccs = append(sccs, comp)
		}
	}

	sortedNodes := append([]string{}, nodes...)
	sort.Strings(sortedNodes)
	for _, n := range sortedNodes {
		if _, ok := indices[n]; !ok {
			strongconnect(n)
		}
	}
	return sccs
}

func isSelfLoop(name string, edges map[string][]string) bool {
	for _, d := range edges[name] {
		if d == name {
			return true
		}
	}
	return false
}

func depNameSetBL(p *plan.Plan) map[string]bool {
	set := make(map[string]bool)
	for _, d := range p.Dependencies.Build {
		set[d.Name] = true
	}
	for _, d := range p.Dependencies.Link {
		set[d.Name] = true
	}
	return set
}

func mvpDepNameSetBL(p *plan.Plan) map[string]bool {
	set := make(map[string]bool)
	if p.MVP == nil {
		return set
	}
	deps := p.EffectiveDependencies(plan.PhaseMVP)
	for _, d := range deps.Build {
		set[d.Name] = true
	}
	for _, d := range deps.Link {
		set[d.Name] = true
	}
	return set
}

// cycleBreakingRemovedEdges returns, sorted, the names within
// cycleMembers that p's main build+link deps name but p's MVP overlay
// (if any) does not — the cycle edges that applying the overlay would
// remove.
func cycleBreakingRemovedEdges(p *plan.Plan, cycleMembers map[string]bool) []string {
	if p.MVP == nil {
		return nil
	}
	main := depNameSetBL(p)
	mvp := mvpDepNameSetBL(p)
	var removed []string
	for name := range main {
		if !mvp[name] && cycleMembers[name] {
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	return removed
}

// pickMVPCandidate selects, deterministically, which cycle member's
// MVP overlay should be used to break the cycle: fewest removed edges,
// tiebreak name ascending. Returns nil if no member has a usable
// overlay.
func pickMVPCandidate(members []string, selected map[string]*plan.Plan) (*plan.Plan, []string) {
	cycleSet := make(map[string]bool, len(members))
	for _, m := range members {
		cycleSet[m] = true
	}
	var best *plan.Plan
	var bestRemoved []string
	for _, name := range members {
		p := selected[name]
		removed := cycleBreakingRemovedEdges(p, cycleSet)
		if len(removed) == 0 {
			continue
		}
		if best == nil ||
			len(removed) < len(bestRemoved) ||
			(len(removed) == len(bestRemoved) && p.Name < best.Name) {
			best = p
			bestRemoved = removed
		}
	}
	return best, bestRemoved
}

func cycleErrorFor(members []string) error {
	return werr.New(werr.KindCycle,
		fmt.Sprintf("dependency cycle with no usable MVP overlay: %s", strings.Join(members, " -> ")), nil)
}
