package orchestrator

import (
	"fmt"

	"github.com/wright-pm/wright/pkg/plan"
)

// computeShare applies spec §4.10's per-job CPU-share formula: total
// budget divided across the dockyards active when the job launched,
// then the build_type modifier, then the per-plan jobs cap. A static
// nprocPerDockyard override bypasses the division entirely but still
// honors the per-plan cap.
func computeShare(total, activeDockyards int, opts plan.Options, nprocPerDockyard int) int {
	var share int
	if nprocPerDockyard > 0 {
		share = nprocPerDockyard
	} else {
		if activeDockyards < 1 {
			activeDockyards = 1
		}
		share = total / activeDockyards
		if share < 1 {
			share = 1
		}
		switch opts.BuildType {
		case plan.BuildSerial:
			share = 1
		case plan.BuildHeavy:
			share = maxInt(share/2, 1)
		}
	}
	if opts.Jobs > 0 && opts.Jobs < share {
		share = opts.Jobs
	}
	return share
}

// goEnvFor returns the GOFLAGS/GOMAXPROCS additions spec §4.10 requires
// for build_type=go: the share is otherwise unchanged, but the Go
// toolchain needs to be told about it explicitly since it does not
// honor CPU affinity the way make/ninja's -j flag does.
func goEnvFor(opts plan.Options, share int) map[string]string {
	if opts.BuildType != plan.BuildGo {
		return nil
	}
	return map[string]string{
		"GOFLAGS":    fmt.Sprintf("-p=%d", share),
		"GOMAXPROCS": fmt.Sprintf("%d", share),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// partitionShares implements the fairness rule: when multiple jobs
// become ready in the same wave, total is divided evenly across them,
// with any remainder allocated one CPU at a time to jobs in order. Every
// job gets at least one CPU, so when jobCount exceeds total the shares
// sum to jobCount, not total. jobCount is the number of jobs in the
// wave; the result is one share per job, ordered to match.
func partitionShares(total, jobCount int) []int {
	if jobCount <= 0 {
		return nil
	}
	base := total / jobCount
	if base < 1 {
		base = 1
	}
	remainder := total - base*jobCount
	shares := make([]int, jobCount)
	for i := range shares {
		shares[i] = base
		if remainder > 0 {
			shares[i]++
			remainder--
		}
	}
	return shares
}
