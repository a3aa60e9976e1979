package plan

// Phase selects which overlay view of a plan to resolve: Full is the
// ordinary build, MVP is a bootstrap pass that merges mvp.lifecycle over
// lifecycle and substitutes mvp.dependencies wholesale for any kind it
// names.
type Phase string

const (
	PhaseFull Phase = "full"
	PhaseMVP  Phase = "mvp"
)

// EffectiveStages returns the stage table for phase: for Full it is
// p.Stages unchanged; for MVP it is p.Stages with every key present in
// the MVP overlay's Lifecycle replaced.
func (p *Plan) EffectiveStages(phase Phase) map[string]Stage {
	if phase == PhaseFull || p.MVP == nil {
		return p.Stages
	}
	merged := make(map[string]Stage, len(p.Stages)+len(p.MVP.Lifecycle))
	for k, v := range p.Stages {
		merged[k] = v
	}
	for k, v := range p.MVP.Lifecycle {
		merged[k] = v
	}
	return merged
}

// EffectiveDependencies returns the dependency set for phase. For MVP,
// any kind the overlay explicitly set (including to an empty list)
// entirely replaces the main plan's list for that kind.
func (p *Plan) EffectiveDependencies(phase Phase) Dependencies {
	if phase == PhaseFull || p.MVP == nil {
		return p.Dependencies
	}
	deps := p.Dependencies
	ov := p.MVP.Dependencies
	if p.MVP.hasDeps["build"] {
		deps.Build = ov.Build
	}
	if p.MVP.hasDeps["link"] {
		deps.Link = ov.Link
	}
	if p.MVP.hasDeps["runtime"] {
		deps.Runtime = ov.Runtime
	}
	if p.MVP.hasDeps["replaces"] {
		deps.Replaces = ov.Replaces
	}
	if p.MVP.hasDeps["conflicts"] {
		deps.Conflicts = ov.Conflicts
	}
	if p.MVP.hasDeps["provides"] {
		deps.Provides = ov.Provides
	}
	if p.MVP.hasDeps["optional"] {
		deps.Optional = ov.Optional
	}
	return deps
}

// effectiveOrder returns the stage pipeline in the order it runs,
// expanding pre_<stage>/post_<stage> hooks around each named stage when
// includeHooks is true.
func effectiveOrder(p *Plan, includeHooks bool) []string {
	if !includeHooks {
		return p.StageOrder
	}
	out := make([]string, 0, len(p.StageOrder)*3)
	for _, s := range p.StageOrder {
		out = append(out, "pre_"+s, s, "post_"+s)
	}
	return out
}

// Pipeline returns the ordered, hook-expanded list of stage names that
// actually run for phase: only names present in the effective stage
// table are included, but the base stage names always appear even when
// undefined (the builder's built-in steps handle fetch/verify/extract
// regardless of whether the plan defines a [stages.*] override).
func (p *Plan) Pipeline(phase Phase) []string {
	stages := p.EffectiveStages(phase)
	var out []string
	for _, name := range p.StageOrder {
		if st, ok := stages["pre_"+name]; ok && st.Script != "" {
			out = append(out, "pre_"+name)
		}
		out = append(out, name)
		if st, ok := stages["post_"+name]; ok && st.Script != "" {
			out = append(out, "post_"+name)
		}
	}
	return out
}
