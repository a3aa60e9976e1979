package plan

import (
	toml "github.com/pelletier/go-toml/v2"

	"github.com/wright-pm/wright/pkg/werr"
)

var buildTypeNames = map[BuildType]string{
	BuildDefault: "default",
	BuildMake:    "make",
	BuildRust:    "rust",
	BuildGo:      "go",
	BuildHeavy:   "heavy",
	BuildSerial:  "serial",
	BuildCustom:  "custom",
}

var dockyardLevelNames = map[DockyardLevel]string{
	LevelNone:    "none",
	LevelRelaxed: "relaxed",
	LevelStrict:  "strict",
}

// Format renders p back into plan.toml shape, the inverse of Parse. It is
// used by `wbuild checksum --update` to rewrite a plan's source checksums.
// The whole file is rendered anew from p, so comments, key order and
// formatting a human wrote into plan.toml are not kept. It is the
// round-trip half of the parse/format law: Parse(Format(p))
// must normalize to a value equal to p.
func Format(p *Plan) ([]byte, error) {
	raw := rawPlan{
		Name:        p.Name,
		Version:     p.Version.String(),
		Release:     p.Release,
		Arch:        p.Arch,
		Description: p.Description,
		License:     p.License,
		URL:         p.URL,
		Maintainer:  p.Maintainer,

		Dependencies: dependenciesToRaw(p.Dependencies),
		Options:      optionsToRaw(p.Options),
		StageOrder:   p.StageOrder,
		Stages:       stagesToRaw(p.Stages),
		Install: rawInstall{
			PostInstall: p.Install.PostInstall,
			PostUpgrade: p.Install.PostUpgrade,
			PreRemove:   p.Install.PreRemove,
		},
		BackupFiles: p.BackupFiles,
	}

	for _, s := range p.Sources {
		raw.Sources = append(raw.Sources, rawSource{URI: s.URI, SHA256: s.SHA256})
	}

	if p.MVP != nil {
		raw.MVP = mvpToRaw(p.MVP)
	}

	if len(p.Splits) > 0 {
		raw.Split = make(map[string]rawSplit, len(p.Splits))
		for _, s := range p.Splits {
			raw.Split[s.Name] = rawSplit{
				Description:  s.Description,
				License:      s.License,
				URL:          s.URL,
				Dependencies: dependenciesToRaw(s.Dependencies),
				Package:      stageToRaw(s.Package),
			}
		}
	}

	out, err := toml.Marshal(raw)
	if err != nil {
		return nil, werr.New(werr.KindValidation, "failed to render plan TOML", err)
	}
	return out, nil
}

func dependenciesToRaw(d Dependencies) rawDependencies {
	return rawDependencies{
		Build:     depListToSpecs(d.Build),
		Link:      depListToSpecs(d.Link),
		Runtime:   depListToSpecs(d.Runtime),
		Replaces:  depListToSpecs(d.Replaces),
		Conflicts: depListToSpecs(d.Conflicts),
		Provides:  d.Provides,
		Optional:  depListToSpecs(d.Optional),
	}
}

func depListToSpecs(deps []Dependency) []string {
	if deps == nil {
		return nil
	}
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if d.Constraint == nil {
			out = append(out, d.Name)
			continue
		}
		out = append(out, d.Name+" "+d.Constraint.String())
	}
	return out
}

func optionsToRaw(o Options) rawOptions {
	return rawOptions{
		Strip:         o.Strip,
		Static:        o.Static,
		Debug:         o.Debug,
		CCache:        o.CCache,
		Env:           o.Env,
		BuildType:     buildTypeNames[o.BuildType],
		MemoryLimitMB: o.MemoryLimitMB,
		CPUTimeLimit:  o.CPUTimeLimit,
		Timeout:       o.Timeout,
		Jobs:          o.Jobs,
		SkipFHSCheck:  o.SkipFHSCheck,
	}
}

func stageToRaw(s Stage) rawStage {
	return rawStage{
		Executor: s.Executor,
		Level:    dockyardLevelNames[s.Level],
		Env:      s.Env,
		Script:   s.Script,
	}
}

func stagesToRaw(stages map[string]Stage) map[string]rawStage {
	if len(stages) == 0 {
		return nil
	}
	out := make(map[string]rawStage, len(stages))
	for name, s := range stages {
		out[name] = stageToRaw(s)
	}
	return out
}

func mvpToRaw(m *MVPOverlay) *rawMVP {
	raw := &rawMVP{Lifecycle: stagesToRaw(m.Lifecycle)}
	if len(m.hasDeps) > 0 {
		deps := dependenciesToRaw(m.Dependencies)
		raw.Dependencies = &deps
	}
	return raw
}
