// Package builder drives one plan through the full lifecycle spec §4.7
// describes: workspace setup, cache skip-gates, fetch/verify/extract,
// the stage pipeline, FHS validation, and final packaging.
package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/wright-pm/wright/pkg/archive"
	"github.com/wright-pm/wright/pkg/executor"
	"github.com/wright-pm/wright/pkg/fhs"
	"github.com/wright-pm/wright/pkg/plan"
	"github.com/wright-pm/wright/pkg/telemetry"
	"github.com/wright-pm/wright/pkg/wconfig"
	"github.com/wright-pm/wright/pkg/werr"
)

// builtinStages are handled directly by Builder rather than dispatched
// to an executor — a plan may still hook pre_fetch/post_extract/etc.,
// but the base stage body is always the builtin implementation.
var builtinStages = map[string]bool{
	"fetch":   true,
	"verify":  true,
	"extract": true,
}

// Builder runs one plan's lifecycle against a loaded configuration.
type Builder struct {
	cfg       *wconfig.Config
	executors *executor.Registry
	fhsTable  fhs.Table
}

// New constructs a Builder, loading any custom executors from the
// configuration's executors directory over the built-in shell executor.
func New(cfg *wconfig.Config) (*Builder, error) {
	reg := executor.NewRegistry()
	dir := cfg.EffectiveExecutorsDir()
	if dir != "" {
		if err := reg.LoadDir(dir); err != nil {
			return nil, werr.New(werr.KindCritical, "failed to load executors", err)
		}
	}
	return &Builder{cfg: cfg, executors: reg, fhsTable: fhs.DefaultTable()}, nil
}

// Flags captures the command-line knobs spec §4.8's skip-gate table
// keys off: --force, --clean, --stage, and the active build phase.
type Flags struct {
	Force   bool
	Clean   bool
	Stage   string // non-empty runs exactly this stage, bypassing cache entirely
	Phase   plan.Phase
	MaxJobs int // --jobs override, 0 means use the plan/config default
	Verbose bool

	// StageGate, when set, wraps every stage-script invocation: called
	// before the stage runs with its name, returning a release func run
	// after it finishes (regardless of outcome). The orchestrator uses
	// this to serialize the "compile" stage across jobs via a
	// process-wide semaphore (spec §4.9's compile-stage serialization);
	// a nil StageGate runs every stage unrestricted.
	StageGate func(stageName string) func()

	// ExtraEnv is merged into the variable map after the standard set is
	// built — the resource scheduler's build_type=go modifier injects
	// GOFLAGS/GOMAXPROCS here, since computing them needs the
	// orchestrator's view of active-dockyard CPU shares.
	ExtraEnv map[string]string
}

// Paths are the on-disk locations one build uses, all rooted under the
// configured build_dir for this plan.
type Paths struct {
	Root      string // build_dir/<name>-<version>
	SrcDir    string
	PkgDir    string
	FilesDir  string
	LogDir    string
	SplitDirs map[string]string
}

func (b *Builder) paths(p *plan.Plan) Paths {
	root := filepath.Join(b.cfg.Build.BuildDir, fmt.Sprintf("%s-%s", p.Name, p.Version.String()))
	splitDirs := make(map[string]string, len(p.Splits))
	for _, s := range p.Splits {
		splitDirs[s.Name] = filepath.Join(root, "pkg-"+s.Name)
	}
	return Paths{
		Root:      root,
		SrcDir:    filepath.Join(root, "src"),
		PkgDir:    filepath.Join(root, "pkg"),
		FilesDir:  filepath.Join(root, "files"),
		LogDir:    filepath.Join(root, "log"),
		SplitDirs: splitDirs,
	}
}

// Report summarizes one completed build for the caller (orchestrator or
// CLI) to log and act on.
type Report struct {
	Plan          *plan.Plan
	CacheHit      bool
	ArchivePath   string
	SplitArchives map[string]string
	Duration      time.Duration
}

// Build runs the full lifecycle for p: prepare → skip gates → fetch →
// verify → extract → variables → stage pipeline → FHS validate →
// package, per spec §4.7/§4.8.
func (b *Builder) Build(ctx context.Context, p *plan.Plan, flags Flags) (*Report, error) {
	start := time.Now()
	paths := b.paths(p)

	if err := b.prepareWorkspace(paths); err != nil {
		return nil, err
	}

	key := b.CacheKey(p, flags.Phase)

	if flags.Clean {
		if err := b.DeleteCacheEntry(key); err != nil {
			return nil, err
		}
	}

	// Skip gate: outside --stage, --force and MVP passes, a cache hit
	// restores the staged output and skips straight to packaging.
	skipEligible := flags.Stage == "" && !flags.Force && flags.Phase != plan.PhaseMVP
	if skipEligible {
		hit, err := b.RestoreCacheEntry(key, paths.PkgDir, paths.LogDir, paths.SplitDirs)
		if err != nil {
			return nil, err
		}
		if hit {
			report, err := b.packageAll(p, paths)
			if err != nil {
				return nil, err
			}
			report.CacheHit = true
			report.Duration = time.Since(start)
			return report, nil
		}
	}

	if flags.Stage == "" || flags.Stage == "fetch" {
		if err := b.Fetch(ctx, p, p.Dir); err != nil {
			return nil, err
		}
	}
	if flags.Stage == "" || flags.Stage == "verify" {
		if err := b.Verify(p); err != nil {
			return nil, err
		}
	}

	buildDir := paths.SrcDir
	if flags.Stage == "" || flags.Stage == "extract" {
		resolved, err := b.Extract(p, paths.SrcDir, paths.FilesDir)
		if err != nil {
			return nil, err
		}
		buildDir = resolved
	}

	nproc := b.cfg.EffectiveJobs(runtime.NumCPU())
	if flags.MaxJobs > 0 && flags.MaxJobs < nproc {
		nproc = flags.MaxJobs
	}
	vars := StandardVariables(p, buildDir, paths.PkgDir, paths.FilesDir, nproc, b.cfg.Build.CFlags, b.cfg.Build.CXXFlags, flags.Phase)
	vars["BUILD_DIR"] = buildDir
	for k, v := range flags.ExtraEnv {
		vars[k] = v
	}

	if err := b.runPipeline(ctx, p, paths, vars, flags); err != nil {
		return nil, err
	}

	if flags.Stage != "" {
		// A single-stage run never packages or caches — it exists purely
		// to iterate on one lifecycle stage quickly.
		return &Report{Plan: p, Duration: time.Since(start)}, nil
	}

	if !p.Options.SkipFHSCheck {
		if err := fhs.Validate(paths.PkgDir, p.Name, b.fhsTable); err != nil {
			return nil, err
		}
		for _, s := range p.Splits {
			if err := fhs.Validate(paths.SplitDirs[s.Name], s.Name, b.fhsTable); err != nil {
				return nil, err
			}
		}
	}

	report, err := b.packageAll(p, paths)
	if err != nil {
		return nil, err
	}

	// MVP passes are packaged but never written to the build cache.
	if flags.Phase != plan.PhaseMVP {
		if err := b.SaveCacheEntry(key, paths.PkgDir, paths.LogDir, paths.SplitDirs); err != nil {
			return nil, err
		}
	}

	report.Duration = time.Since(start)
	return report, nil
}

func (b *Builder) prepareWorkspace(paths Paths) error {
	for _, dir := range []string{paths.SrcDir, paths.PkgDir, paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return werr.New(werr.KindBuild, "failed to create workspace directory "+dir, err)
		}
	}
	for _, dir := range paths.SplitDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return werr.New(werr.KindBuild, "failed to create split workspace directory "+dir, err)
		}
	}
	return nil
}

// runPipeline walks the plan's hook-expanded stage order, skipping the
// base body of any builtin stage (fetch/verify/extract already ran) but
// still running its pre_/post_ hooks, which are ordinary user scripts.
func (b *Builder) runPipeline(ctx context.Context, p *plan.Plan, paths Paths, vars map[string]string, flags Flags) error {
	stages := p.EffectiveStages(flags.Phase)
	for _, name := range p.Pipeline(flags.Phase) {
		if flags.Stage != "" && name != flags.Stage {
			continue
		}
		baseName := name
		if after, ok := cutPrefix(name, "pre_"); ok {
			baseName = after
		} else if after, ok := cutPrefix(name, "post_"); ok {
			baseName = after
		}
		if builtinStages[baseName] && name == baseName {
			continue
		}
		stage, ok := stages[name]
		if !ok || stage.Script == "" {
			continue
		}
		opts := executor.Options{
			SrcDir:   paths.SrcDir,
			PkgDir:   paths.PkgDir,
			FilesDir: paths.FilesDir,
			LogDir:   paths.LogDir,
		}
		var release func()
		if flags.StageGate != nil {
			release = flags.StageGate(name)
		}
		stageCtx := telemetry.WithExecutorContext(ctx, stage.Executor, name)
		err := telemetry.RecordExecutorOperation(stageCtx, p.Name, stage.Executor, name, func() error {
			_, runErr := executor.RunStage(stageCtx, b.executors, name, stage, vars, opts)
			return runErr
		})
		if release != nil {
			release()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func cutPrefix(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):], true
	}
	return s, false
}

// packageAll archives the main package tree and every split into
// cache_dir/packages, returning their paths in the report.
func (b *Builder) packageAll(p *plan.Plan, paths Paths) (*Report, error) {
	outDir := filepath.Join(b.cfg.General.CacheDir, "packages")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, werr.New(werr.KindBuild, "failed to create package output directory", err)
	}

	buildTime := time.Now().UTC()
	mainInfo := archive.PkgInfo{
		Name:        p.Name,
		Version:     p.Version.String(),
		Release:     p.Release,
		Description: p.Description,
		Arch:        p.Arch,
		License:     p.License,
		BuildDate:   buildTime.Format(time.RFC3339),
		RuntimeDeps: formatDependencies(p.Dependencies.Runtime),
		LinkDeps:    formatDependencies(p.Dependencies.Link),
		Replaces:    formatDependencies(p.Dependencies.Replaces),
		Conflicts:   formatDependencies(p.Dependencies.Conflicts),
		Provides:    p.Dependencies.Provides,
		BackupFiles: p.BackupFiles,
	}
	mainPath := filepath.Join(outDir, archive.ArchiveFilename(p.Name, p.Version.String(), p.Release, p.Arch))
	if err := archive.Create(paths.PkgDir, mainPath, archive.BuildOptions{
		Info:    mainInfo,
		Install: archive.InstallScripts{PostInstall: p.Install.PostInstall, PostUpgrade: p.Install.PostUpgrade, PreRemove: p.Install.PreRemove},
		MTime:   buildTime.Unix(),
	}); err != nil {
		return nil, werr.New(werr.KindBuild, "failed to package "+p.Name, err).WithPackage(p.Name)
	}

	splitArchives := make(map[string]string, len(p.Splits))
	for _, s := range p.Splits {
		info := archive.PkgInfo{
			Name:        s.Name,
			Version:     p.Version.String(),
			Release:     p.Release,
			Description: s.Description,
			Arch:        p.Arch,
			License:     firstNonEmpty(s.License, p.License),
			BuildDate:   mainInfo.BuildDate,
			RuntimeDeps: formatDependencies(s.Dependencies.Runtime),
			LinkDeps:    formatDependencies(s.Dependencies.Link),
			Replaces:    formatDependencies(s.Dependencies.Replaces),
			Conflicts:   formatDependencies(s.Dependencies.Conflicts),
			Provides:    s.Dependencies.Provides,
		}
		splitPath := filepath.Join(outDir, archive.ArchiveFilename(s.Name, p.Version.String(), p.Release, p.Arch))
		if err := archive.Create(paths.SplitDirs[s.Name], splitPath, archive.BuildOptions{Info: info, MTime: buildTime.Unix()}); err != nil {
			return nil, werr.New(werr.KindBuild, "failed to package split "+s.Name, err).WithPackage(s.Name)
		}
		splitArchives[s.Name] = splitPath
	}

	return &Report{Plan: p, ArchivePath: mainPath, SplitArchives: splitArchives}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// formatDependencies renders each dependency as "name" or "name >= 1.2.3"
// for embedding in a .PKGINFO's runtime_deps list.
func formatDependencies(deps []plan.Dependency) []string {
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if d.Constraint != nil {
			out = append(out, fmt.Sprintf("%s %s", d.Name, d.Constraint.String()))
		} else {
			out = append(out, d.Name)
		}
	}
	return out
}
