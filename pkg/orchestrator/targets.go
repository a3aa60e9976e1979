package orchestrator

import (
	"context"

	"github.com/wright-pm/wright/pkg/plan"
	"github.com/wright-pm/wright/pkg/version"
)

// resolveTargets expands `@assembly` targets, then applies scope's
// set-operation over the plan graph per spec §4.9: --self keeps the
// explicit targets, --deps pulls in missing upstream build+link deps
// (skipping already-installed ones unless -D), --dependents pulls in
// packages that link to a target (plus runtime/build dependents when
// -R is set). Absence of all three flags applies the default,
// self ∪ missing-deps. --exact opts out of all expansion.
func (o *Orchestrator) resolveTargets(ctx context.Context, opts BuildOptions) (map[string]*plan.Plan, map[string]Reason, error) {
	scope := opts.Scope
	selected := make(map[string]*plan.Plan)
	reasons := make(map[string]Reason)

	var explicit []string
	for _, t := range opts.Targets {
		explicit = append(explicit, o.cache.ExpandAssembly(t)...)
	}
	for _, name := range explicit {
		p, ok := o.cache.Lookup(name)
		if !ok {
			return nil, nil, unsatisfiedDependencyError(name)
		}
		selected[name] = p
		reasons[name] = ReasonNew
	}

	if scope.Exact {
		return selected, reasons, nil
	}

	applyDeps := scope.Deps || (!scope.Self && !scope.Deps && !scope.Dependents)
	applyDependents := scope.Dependents

	if applyDeps {
		o.expandMissingDeps(ctx, selected, reasons, scope)
	}
	if applyDependents {
		o.expandDependents(selected, reasons, scope)
	}

	return selected, reasons, nil
}

// expandMissingDeps walks build+link dependency edges upward from the
// current selection in a loop-until-fixpoint BFS, adding any plan found
// in the cache that is not already satisfied by an installed package
// (or adding it anyway, forced, when -D is set).
func (o *Orchestrator) expandMissingDeps(ctx context.Context, selected map[string]*plan.Plan, reasons map[string]Reason, scope Scope) {
	frontier := make([]*plan.Plan, 0, len(selected))
	for _, p := range selected {
		frontier = append(frontier, p)
	}
	hop := 0
	for len(frontier) > 0 {
		if scope.Depth > 0 && hop >= scope.Depth {
			return
		}
		var next []*plan.Plan
		deps := make([]plan.Dependency, 0)
		for _, p := range frontier {
			deps = append(deps, p.Dependencies.Build...)
			deps = append(deps, p.Dependencies.Link...)
		}
		for _, dep := range deps {
			if _, ok := selected[dep.Name]; ok {
				continue
			}
			if !scope.EscalateD && o.isSatisfiedByInstalled(ctx, dep) {
				continue
			}
			dp, ok := o.cache.Lookup(dep.Name)
			if !ok {
				continue
			}
			selected[dep.Name] = dp
			reasons[dep.Name] = ReasonNew
			next = append(next, dp)
		}
		frontier = next
		hop++
	}
}

// expandDependents walks link-dependency edges downward: any cached
// plan whose link deps intersect the current selection is added as
// LINK-REBUILD; with -R, runtime/build dependents are added too as
// REV-REBUILD. Runs to fixpoint.
func (o *Orchestrator) expandDependents(selected map[string]*plan.Plan, reasons map[string]Reason, scope Scope) {
	hop := 0
	for {
		if scope.Depth > 0 && hop >= scope.Depth {
			return
		}
		added := false
		for _, candidate := range o.cache.All() {
			if _, ok := selected[candidate.Name]; ok {
				continue
			}
			if dependsOn(candidate.Dependencies.Link, selected) {
				selected[candidate.Name] = candidate
				reasons[candidate.Name] = ReasonLinkRebuild
				added = true
				continue
			}
			if scope.EscalateR {
				combined := append(append([]plan.Dependency{}, candidate.Dependencies.Runtime...), candidate.Dependencies.Build...)
				if dependsOn(combined, selected) {
					selected[candidate.Name] = candidate
					reasons[candidate.Name] = ReasonRevRebuild
					added = true
				}
			}
		}
		if !added {
			return
		}
		hop++
	}
}

func dependsOn(deps []plan.Dependency, selected map[string]*plan.Plan) bool {
	for _, dep := range deps {
		if _, ok := selected[dep.Name]; ok {
			return true
		}
	}
	return false
}

// isSatisfiedByInstalled reports whether dep is already satisfied by an
// installed package, a provides alias, or an assumed record. A nil
// store (target resolution running without a live database, e.g. in
// --lint mode against a fresh plan cache) is treated as "nothing
// installed".
func (o *Orchestrator) isSatisfiedByInstalled(ctx context.Context, dep plan.Dependency) bool {
	if o.st == nil {
		return false
	}
	if pkg, ok, err := o.st.LookupByName(ctx, dep.Name); err == nil && ok {
		return constraintSatisfied(dep, pkg.Version)
	}
	if owner, ok, err := o.st.ProviderOf(ctx, dep.Name); err == nil && ok {
		if pkg, ok, err := o.st.LookupByName(ctx, owner); err == nil && ok {
			return constraintSatisfied(dep, pkg.Version)
		}
	}
	if assumed, ok, err := o.st.LookupAssumed(ctx, dep.Name); err == nil && ok {
		return constraintSatisfied(dep, assumed.Version)
	}
	return false
}

func constraintSatisfied(dep plan.Dependency, installedVersion string) bool {
	if dep.Constraint == nil {
		return true
	}
	v, err := version.Parse(installedVersion)
	if err != nil {
		return false
	}
	return dep.Constraint.Satisfies(v)
}
