package plan

import (
	"fmt"

	"github.com/wright-pm/wright/pkg/werr"
)

// validatePlan checks the cross-field invariants that struct tags alone
// cannot express: name uniqueness across main + splits, sha256 count
// equal to source count, non-empty scripts for every stage the resolved
// pipeline references, and split name well-formedness.
func validatePlan(p *Plan) error {
	seen := map[string]bool{p.Name: true}
	for _, s := range p.Splits {
		if !nameRE.MatchString(s.Name) {
			return planError(p.Name, fmt.Sprintf("split name %q is not a valid identifier", s.Name))
		}
		if s.Name == p.Name {
			return planError(p.Name, fmt.Sprintf("split %q collides with the main package name", s.Name))
		}
		if seen[s.Name] {
			return planError(p.Name, fmt.Sprintf("duplicate package name %q", s.Name))
		}
		seen[s.Name] = true
	}

	for _, src := range p.Sources {
		if src.URI == "" {
			return planError(p.Name, "source entries must have a non-empty URI")
		}
		if src.SHA256 == "" {
			return planError(p.Name, "source entries must have a non-empty sha256 (use \"SKIP\" to bypass verification)")
		}
	}

	for _, stageName := range effectiveOrder(p, false) {
		st, defined := p.Stages[stageName]
		if !defined {
			continue
		}
		if st.Script == "" {
			return planError(p.Name, fmt.Sprintf("stage %q is defined but has an empty script", stageName))
		}
	}
	if p.MVP != nil {
		for stageName, st := range p.MVP.Lifecycle {
			if st.Script == "" {
				return planError(p.Name, fmt.Sprintf("mvp stage %q is defined but has an empty script", stageName))
			}
		}
	}

	for _, s := range p.Splits {
		if s.Package.Script == "" {
			return planError(p.Name, fmt.Sprintf("split %q has no package stage script", s.Name))
		}
	}

	return nil
}

func planError(pkg, msg string) error {
	return werr.New(werr.KindValidation, msg, nil).WithPackage(pkg)
}
