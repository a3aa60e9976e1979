package orchestrator

import (
	"context"
	"sync"

	"github.com/wright-pm/wright/pkg/builder"
	"github.com/wright-pm/wright/pkg/telemetry"
)

// scheduler drives one run's levels to completion: a bounded worker
// pool per level (grounded stylistically on pkg/engine/scheduler.go's
// executeLevelParallel), a process-wide compile-stage semaphore, and a
// serial install lock, per spec §4.9/§5.
type scheduler struct {
	orch      *Orchestrator
	opts      BuildOptions
	budget    int
	dockyards int
	runID     string

	compileSem chan struct{}
	installMu  sync.Mutex
}

// run executes levels sequentially — a barrier between levels, matching
// the teacher's executePlanLevels — with every job inside one level
// running concurrently, bounded by s.dockyards. A fatal error from any
// job cancels the run: in-flight jobs in the same level are allowed to
// finish (per spec §5's cancellation semantics), but no further level
// begins.
func (s *scheduler) run(ctx context.Context, levels [][]*Job) (map[string]*builder.Report, error) {
	s.compileSem = make(chan struct{}, 1)
	reports := make(map[string]*builder.Report)
	var reportsMu sync.Mutex
	var firstErr error

	for _, level := range levels {
		if firstErr != nil {
			break
		}
		firstErr = s.runLevel(ctx, level, reports, &reportsMu)
	}

	return reports, firstErr
}

func (s *scheduler) runLevel(ctx context.Context, level []*Job, reports map[string]*builder.Report, reportsMu *sync.Mutex) error {
	active := len(level)
	if active > s.dockyards {
		active = s.dockyards
	}
	if active < 1 {
		active = 1
	}
	// shares is indexed by position in level, but only `active` jobs
	// ever run concurrently (the semaphore below admits at most
	// s.dockyards at once) — jobs beyond the first wave reuse a wave
	// slot's share once that slot frees up.
	wave := partitionShares(s.budget, active)
	shares := make([]int, len(level))
	for i := range shares {
		shares[i] = wave[i%active]
	}

	sem := make(chan struct{}, s.dockyards)
	var wg sync.WaitGroup
	errs := make([]error, len(level))

	for i, job := range level {
		i, job := i, job
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			report, err := s.buildOne(ctx, job, shares[i])
			if err != nil {
				errs[i] = err
				return
			}
			reportsMu.Lock()
			reports[job.key()] = report
			reportsMu.Unlock()

			if s.opts.Install && s.orch.installer != nil {
				if err := s.installReport(ctx, job, report); err != nil {
					errs[i] = err
				}
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// buildOne runs one job's build under a build-job-scoped telemetry
// span/logger/metric triple, keyed by the run's ID and this job's key —
// a no-op when ctx carries no *telemetry.Telemetry.
func (s *scheduler) buildOne(ctx context.Context, job *Job, share int) (*builder.Report, error) {
	flags := builder.Flags{
		Force:     s.opts.Force || job.Force,
		Clean:     s.opts.Clean,
		Phase:     job.Phase,
		MaxJobs:   share,
		StageGate: s.compileGate,
		ExtraEnv:  goEnvFor(job.Plan.Options, share),
	}
	if s.opts.Only != "" {
		flags.Stage = s.opts.Only
	} else {
		flags.Stage = s.opts.Stage
	}

	ctx = telemetry.WithBuildJobContext(ctx, s.runID, job.key(), job.Plan.Name, string(job.Phase))
	report, err := s.orch.bld.Build(ctx, job.Plan, flags)
	telemetry.EndBuildJobContext(ctx, s.runID, job.key(), job.Plan.Name, string(job.Phase), buildJobStatus(err), err)
	return report, err
}

func buildJobStatus(err error) string {
	if err != nil {
		return "failed"
	}
	return "succeeded"
}

// compileGate serializes exactly the stage conventionally named
// "compile" across every job in the run; every other stage is
// unrestricted.
func (s *scheduler) compileGate(stageName string) func() {
	if stageName != "compile" {
		return nil
	}
	s.compileSem <- struct{}{}
	return func() { <-s.compileSem }
}

// installReport acquires the serial install lock and installs the main
// archive then each split in p.Splits order, per spec §4.9's
// install-interleaving rule. Parse fills p.Splits by ranging over the
// decoded [split] table, a map, so this order is not the order the
// splits appear in plan.toml and can differ between runs.
func (s *scheduler) installReport(ctx context.Context, job *Job, report *builder.Report) error {
	s.installMu.Lock()
	defer s.installMu.Unlock()

	if report.ArchivePath != "" {
		if err := s.orch.installer.InstallArchive(ctx, report.ArchivePath); err != nil {
			return err
		}
	}
	for _, split := range job.Plan.Splits {
		path, ok := report.SplitArchives[split.Name]
		if !ok {
			continue
		}
		if err := s.orch.installer.InstallArchive(ctx, path); err != nil {
			return err
		}
	}
	return nil
}
