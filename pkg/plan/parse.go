package plan

import (
	"bytes"
	"fmt"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/wright-pm/wright/pkg/version"
	"github.com/wright-pm/wright/pkg/werr"
)

var nameRE = regexp.MustCompile(`^[a-z0-9][a-z0-9_+.-]*$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("plan_name", func(fl validator.FieldLevel) bool {
			return nameRE.MatchString(fl.Field().String())
		})
	})
	return validate
}

var buildTypes = map[string]BuildType{
	"":       BuildDefault,
	"default": BuildDefault,
	"make":    BuildMake,
	"rust":    BuildRust,
	"go":      BuildGo,
	"heavy":   BuildHeavy,
	"serial":  BuildSerial,
	"custom":  BuildCustom,
}

var dockyardLevels = map[string]DockyardLevel{
	"":        LevelRelaxed,
	"none":    LevelNone,
	"relaxed": LevelRelaxed,
	"strict":  LevelStrict,
}

// Parse decodes and validates a plan file's contents, given the
// directory it was loaded from (used to resolve plan-relative local
// sources and reported on the returned Plan).
func Parse(data []byte, dir string) (*Plan, error) {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var raw rawPlan
	if err := dec.Decode(&raw); err != nil {
		return nil, werr.New(werr.KindValidation, "failed to parse plan TOML", err)
	}

	if err := getValidator().Struct(&raw); err != nil {
		return nil, werr.New(werr.KindValidation, "plan validation failed", err)
	}

	p, err := normalize(&raw, dir)
	if err != nil {
		return nil, err
	}
	if err := validatePlan(p); err != nil {
		return nil, err
	}
	return p, nil
}

func normalize(raw *rawPlan, dir string) (*Plan, error) {
	v, err := version.Parse(raw.Version)
	if err != nil {
		return nil, werr.New(werr.KindValidation, "invalid version", err)
	}

	deps, err := convertDependencies(raw.Dependencies)
	if err != nil {
		return nil, err
	}

	bt, ok := buildTypes[raw.Options.BuildType]
	if !ok {
		return nil, werr.New(werr.KindValidation, fmt.Sprintf("unknown build_type %q", raw.Options.BuildType), nil)
	}

	sources := make([]Source, 0, len(raw.Sources))
	for _, s := range raw.Sources {
		sources = append(sources, Source{URI: s.URI, SHA256: s.SHA256})
	}

	stages, err := convertStages(raw.Stages)
	if err != nil {
		return nil, err
	}

	order := raw.StageOrder
	if len(order) == 0 {
		order = DefaultStageOrder
	}

	p := &Plan{
		Name:        raw.Name,
		Version:     v,
		Release:     raw.Release,
		Arch:        raw.Arch,
		Description: raw.Description,
		License:     raw.License,
		URL:         raw.URL,
		Maintainer:  raw.Maintainer,
		Dependencies: deps,
		Sources:      sources,
		Options: Options{
			Strip:         raw.Options.Strip,
			Static:        raw.Options.Static,
			Debug:         raw.Options.Debug,
			CCache:        raw.Options.CCache,
			Env:           raw.Options.Env,
			BuildType:     bt,
			MemoryLimitMB: raw.Options.MemoryLimitMB,
			CPUTimeLimit:  raw.Options.CPUTimeLimit,
			Timeout:       raw.Options.Timeout,
			Jobs:          raw.Options.Jobs,
			SkipFHSCheck:  raw.Options.SkipFHSCheck,
		},
		StageOrder:  order,
		Stages:      stages,
		Install: InstallScripts{
			PostInstall: raw.Install.PostInstall,
			PostUpgrade: raw.Install.PostUpgrade,
			PreRemove:   raw.Install.PreRemove,
		},
		BackupFiles: raw.BackupFiles,
		Dir:         dir,
	}

	if raw.MVP != nil {
		overlay, err := convertMVP(raw.MVP)
		if err != nil {
			return nil, err
		}
		p.MVP = overlay
	}

	for name, s := range raw.Split {
		split, err := convertSplit(name, s)
		if err != nil {
			return nil, err
		}
		p.Splits = append(p.Splits, split)
	}

	return p, nil
}

func convertDependencies(r rawDependencies) (Dependencies, error) {
	build, err := convertDepList(r.Build)
	if err != nil {
		return Dependencies{}, err
	}
	link, err := convertDepList(r.Link)
	if err != nil {
		return Dependencies{}, err
	}
	runtime, err := convertDepList(r.Runtime)
	if err != nil {
		return Dependencies{}, err
	}
	replaces, err := convertDepList(r.Replaces)
	if err != nil {
		return Dependencies{}, err
	}
	conflicts, err := convertDepList(r.Conflicts)
	if err != nil {
		return Dependencies{}, err
	}
	optional, err := convertDepList(r.Optional)
	if err != nil {
		return Dependencies{}, err
	}
	return Dependencies{
		Build:     build,
		Link:      link,
		Runtime:   runtime,
		Replaces:  replaces,
		Conflicts: conflicts,
		Provides:  r.Provides,
		Optional:  optional,
	}, nil
}

func convertDepList(specs []string) ([]Dependency, error) {
	out := make([]Dependency, 0, len(specs))
	for _, spec := range specs {
		name, c, err := version.ParseDependency(spec)
		if err != nil {
			return nil, werr.New(werr.KindValidation, fmt.Sprintf("invalid dependency spec %q", spec), err)
		}
		out = append(out, Dependency{Name: name, Constraint: c})
	}
	return out, nil
}

func convertStages(raw map[string]rawStage) (map[string]Stage, error) {
	out := make(map[string]Stage, len(raw))
	for name, rs := range raw {
		st, err := convertStage(rs)
		if err != nil {
			return nil, werr.New(werr.KindValidation, fmt.Sprintf("stage %q: %v", name, err), nil)
		}
		out[name] = st
	}
	return out, nil
}

func convertStage(rs rawStage) (Stage, error) {
	level, ok := dockyardLevels[rs.Level]
	if !ok {
		return Stage{}, fmt.Errorf("unknown dockyard level %q", rs.Level)
	}
	return Stage{
		Executor: rs.Executor,
		Level:    level,
		Env:      rs.Env,
		Script:   rs.Script,
	}, nil
}

func convertMVP(raw *rawMVP) (*MVPOverlay, error) {
	overlay := &MVPOverlay{hasDeps: map[string]bool{}}
	if raw.Lifecycle != nil {
		lifecycle, err := convertStages(raw.Lifecycle)
		if err != nil {
			return nil, err
		}
		overlay.Lifecycle = lifecycle
	}
	if raw.Dependencies != nil {
		deps, err := convertDependencies(*raw.Dependencies)
		if err != nil {
			return nil, err
		}
		overlay.Dependencies = deps
		if raw.Dependencies.Build != nil {
			overlay.hasDeps["build"] = true
		}
		if raw.Dependencies.Link != nil {
			overlay.hasDeps["link"] = true
		}
		if raw.Dependencies.Runtime != nil {
			overlay.hasDeps["runtime"] = true
		}
		if raw.Dependencies.Replaces != nil {
			overlay.hasDeps["replaces"] = true
		}
		if raw.Dependencies.Conflicts != nil {
			overlay.hasDeps["conflicts"] = true
		}
		if raw.Dependencies.Provides != nil {
			overlay.hasDeps["provides"] = true
		}
		if raw.Dependencies.Optional != nil {
			overlay.hasDeps["optional"] = true
		}
	}
	return overlay, nil
}

func convertSplit(name string, raw rawSplit) (Split, error) {
	deps, err := convertDependencies(raw.Dependencies)
	if err != nil {
		return Split{}, err
	}
	pkgStage, err := convertStage(raw.Package)
	if err != nil {
		return Split{}, werr.New(werr.KindValidation, fmt.Sprintf("split %q package stage: %v", name, err), nil)
	}
	return Split{
		Name:         name,
		Description:  raw.Description,
		License:      raw.License,
		URL:          raw.URL,
		Dependencies: deps,
		Package:      pkgStage,
	}, nil
}
