// Package orchestrator turns a set of user-named plan targets into a
// dependency-correct, concurrency-bounded construction plan and drives
// it to completion: target expansion, missing- and rebuild-dependency
// expansion, cycle detection with MVP bootstrap injection, topological
// leveling, and a level-parallel worker pool over pkg/builder.
//
// Grounded on original_source/src/builder/orchestrator.rs for the
// expansion and scheduling algorithms, and on pkg/engine/dag.go and
// pkg/engine/scheduler.go for the Go-idiomatic worker-pool shape.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/google/uuid"

	"github.com/wright-pm/wright/pkg/builder"
	"github.com/wright-pm/wright/pkg/plan"
	"github.com/wright-pm/wright/pkg/store"
	"github.com/wright-pm/wright/pkg/telemetry"
	"github.com/wright-pm/wright/pkg/wconfig"
	"github.com/wright-pm/wright/pkg/werr"
)

// Scope selects which set-operation expands the explicit target list.
type Scope struct {
	Self       bool
	Deps       bool
	Dependents bool
	EscalateD  bool // -D: force-rebuild already-installed deps too
	EscalateR  bool // -R: add runtime+build dependents, not just link
	Depth      int  // 0 = unlimited
	Exact      bool // opt out of all expansion
}

// BuildOptions mirrors orchestrator.rs's BuildOptions: the full knob set
// for one orchestrator invocation.
type BuildOptions struct {
	Targets []string
	Scope   Scope
	Stage   string
	Only    string
	Clean   bool
	Lint    bool
	Force   bool
	Update  bool
	Jobs    int // worker pool override; 0 = wconfig default
	Install bool
	Quiet   bool
}

// Installer is the subset of pkg/installer's surface the orchestrator
// needs for --install interleaving. Defined here (rather than imported)
// to avoid a dependency cycle; pkg/installer's concrete type satisfies
// it.
type Installer interface {
	InstallArchive(ctx context.Context, archivePath string) error
}

// Orchestrator wires the plan cache, installed-package store, and
// builder together to run one construction plan.
type Orchestrator struct {
	cfg       *wconfig.Config
	cache     *plan.Cache
	st        *store.Store
	bld       *builder.Builder
	installer Installer
}

// New builds an Orchestrator over an already-loaded plan cache.
func New(cfg *wconfig.Config, cache *plan.Cache, st *store.Store, bld *builder.Builder, installer Installer) *Orchestrator {
	return &Orchestrator{cfg: cfg, cache: cache, st: st, bld: bld, installer: installer}
}

// Result is the outcome of one Run: the construction plan that was
// executed and the per-job reports, in schedule order.
type Result struct {
	Plan    []*Job
	Reports map[string]*builder.Report // keyed by job key
}

// Run resolves targets, expands and schedules the construction plan,
// and executes it to completion or the first fatal error. The run is
// wrapped in a run-scoped telemetry span/logger/metric triple keyed by
// a freshly minted run ID, a no-op when ctx carries no *telemetry.Telemetry.
func (o *Orchestrator) Run(ctx context.Context, opts BuildOptions) (result *Result, err error) {
	runID := uuid.NewString()
	ctx = telemetry.WithRunContext(ctx, runID, invokingUser())
	defer func() { telemetry.EndRunContext(ctx, runID, runStatus(err), err) }()

	selected, reasons, err := o.resolveTargets(ctx, opts)
	if err != nil {
		return nil, err
	}

	jobs, edges, err := buildJobGraph(selected, reasons)
	if err != nil {
		return nil, err
	}

	levels, err := leveled(jobs, edges)
	if err != nil {
		return nil, err
	}

	if !opts.Quiet {
		printPlan(levels)
	}

	if opts.Lint {
		return &Result{Plan: flatten(levels)}, nil
	}

	budget := o.cfg.EffectiveJobs(runtime.NumCPU())
	dockyards := o.cfg.Dockyards(budget)
	if opts.Jobs > 0 {
		dockyards = opts.Jobs
	}

	sched := &scheduler{
		orch:      o,
		opts:      opts,
		budget:    budget,
		dockyards: dockyards,
		runID:     runID,
	}
	reports, err := sched.run(ctx, levels)
	if err != nil {
		return nil, err
	}

	return &Result{Plan: flatten(levels), Reports: reports}, nil
}

// invokingUser identifies who kicked off this run for the run-started
// event/log field; wright has no multi-tenant accounts, so this is
// simply the OS account the process is running as.
func invokingUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

func runStatus(err error) string {
	if err != nil {
		return "failed"
	}
	return "succeeded"
}

func flatten(levels [][]*Job) []*Job {
	var out []*Job
	for _, lvl := range levels {
		out = append(out, lvl...)
	}
	return out
}

func printPlan(levels [][]*Job) {
	for i, lvl := range levels {
		for _, j := range lvl {
			fmt.Printf("level %d: [%s] %s (%s)\n", i, j.Reason, j.Plan.Name, j.Phase)
		}
	}
}

func unsatisfiedDependencyError(name string) error {
	return werr.New(werr.KindDependency, fmt.Sprintf("no plan or installed package satisfies %q", name), nil)
}
