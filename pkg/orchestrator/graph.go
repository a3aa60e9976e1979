package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wright-pm/wright/pkg/plan"
	"github.com/wright-pm/wright/pkg/werr"
)

// buildJobGraph turns the selected plan set into a job set and a
// build+link dependency edge map keyed by job key. Strongly connected
// components of size ≥2 (or a self-loop) are cycles: each is resolved
// per spec §4.9 by picking one member's MVP overlay to break enough
// edges to linearize the component, producing an [MVP] bootstrap job
// that precedes the rest of the cycle and a forced [FULL] job that
// follows all of them.
func buildJobGraph(selected map[string]*plan.Plan, reasons map[string]Reason) (map[string]*Job, map[string][]string, error) {
	names := make([]string, 0, len(selected))
	planEdges := make(map[string][]string)
	for name, p := range selected {
		names = append(names, name)
		planEdges[name] = depEdges(p, selected)
	}

	sccs := tarjanSCC(names, planEdges)

	candidate := make(map[string]bool)     // name -> is the MVP candidate of its cycle
	memberOf := make(map[string]map[string]bool) // name -> its cycle's full member set (nil if not in a cycle)

	for _, comp := range sccs {
		isCycle := len(comp) >= 2 || (len(comp) == 1 && isSelfLoop(comp[0], planEdges))
		if !isCycle {
			continue
		}
		cand, _ := pickMVPCandidate(comp, selected)
		if cand == nil {
			return nil, nil, cycleErrorFor(comp)
		}
		memberSet := make(map[string]bool, len(comp))
		for _, m := range comp {
			memberSet[m] = true
		}
		for _, m := range comp {
			memberOf[m] = memberSet
		}
		candidate[cand.Name] = true
	}

	jobs := make(map[string]*Job)
	for name, p := range selected {
		reason := reasons[name]
		if reason == "" {
			reason = ReasonNew
		}
		if candidate[name] {
			mvpJob := &Job{Plan: p, Phase: plan.PhaseMVP, Reason: ReasonMVP}
			fullJob := &Job{Plan: p, Phase: plan.PhaseFull, Reason: ReasonFull, Force: true}
			jobs[mvpJob.key()] = mvpJob
			jobs[fullJob.key()] = fullJob
		} else {
			jobs[name+"#"+string(plan.PhaseFull)] = &Job{Plan: p, Phase: plan.PhaseFull, Reason: reason}
		}
	}

	edges := make(map[string][]string)
	for name := range selected {
		members := memberOf[name]
		if candidate[name] {
			mvpKey := name + "#" + string(plan.PhaseMVP)
			fullKey := name + "#" + string(plan.PhaseFull)
			for _, dep := range planEdges[name] {
				if members[dep] {
					continue // same-cycle deps are satisfied once the cycle resolves; skip for MVP
				}
				edges[mvpKey] = append(edges[mvpKey], name2key(dep, name, candidate, memberOf))
			}
			for other := range members {
				if other != name {
					edges[fullKey] = append(edges[fullKey], other+"#"+string(plan.PhaseFull))
				}
			}
			for _, dep := range planEdges[name] {
				if members[dep] {
					continue
				}
				edges[fullKey] = append(edges[fullKey], name2key(dep, name, candidate, memberOf))
			}
		} else {
			key := name + "#" + string(plan.PhaseFull)
			for _, dep := range planEdges[name] {
				edges[key] = append(edges[key], name2key(dep, name, candidate, memberOf))
			}
		}
	}

	return jobs, edges, nil
}

// name2key resolves which job of dep the referrer should wait on: its
// own cycle's candidate resolves to the MVP pass (breaking the cycle);
// everything else resolves to the ordinary FULL pass.
func name2key(dep, referrer string, candidate map[string]bool, memberOf map[string]map[string]bool) string {
	if referrerMembers := memberOf[referrer]; referrerMembers != nil && referrerMembers[dep] && candidate[dep] {
		return dep + "#" + string(plan.PhaseMVP)
	}
	return dep + "#" + string(plan.PhaseFull)
}

// leveled topologically sorts jobs into levels via Kahn's algorithm,
// styled on pkg/engine/dag.go's computeLevels: each level holds every
// job whose predecessors are all in an earlier level, so jobs within a
// level are mutually independent and safe to run in parallel. Jobs are
// sorted by name within a level for deterministic, reproducible plan
// output. A non-empty remainder after the queue drains means a cycle
// survived job-graph construction (a residual cycle among non-candidate
// members not resolved by the single chosen MVP overlay).
func leveled(jobs map[string]*Job, edges map[string][]string) ([][]*Job, error) {
	inDegree := make(map[string]int, len(jobs))
	dependents := make(map[string][]string, len(jobs))
	for key := range jobs {
		inDegree[key] = 0
	}
	for key, deps := range edges {
		for _, dep := range deps {
			if _, ok := jobs[dep]; !ok {
				continue
			}
			inDegree[key]++
			dependents[dep] = append(dependents[dep], key)
		}
	}

	var levels [][]*Job
	remaining := len(jobs)
	current := make([]string, 0)
	for key, deg := range inDegree {
		if deg == 0 {
			current = append(current, key)
		}
	}
	sort.Strings(current)

	for len(current) > 0 {
		level := make([]*Job, 0, len(current))
		for _, key := range current {
			level = append(level, jobs[key])
			remaining--
		}
		sort.Slice(level, func(i, j int) bool { return level[i].Plan.Name < level[j].Plan.Name })
		levels = append(levels, level)

		var next []string
		for _, key := range current {
			for _, dep := range dependents[key] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		sort.Strings(next)
		current = next
	}

	if remaining > 0 {
		var stuck []string
		for key, deg := range inDegree {
			if deg > 0 {
				stuck = append(stuck, key)
			}
		}
		sort.Strings(stuck)
		return nil, werr.New(werr.KindCycle,
			fmt.Sprintf("residual dependency cycle after MVP resolution: %s", strings.Join(stuck, ", ")), nil)
	}

	return levels, nil
}
