package orchestrator

import (
	"testing"

	"github.com/wright-pm/wright/pkg/plan"
)

func TestComputeShareDefault(t *testing.T) {
	share := computeShare(16, 4, plan.Options{}, 0)
	if share != 4 {
		t.Fatalf("expected share 4, got %d", share)
	}
}

func TestComputeShareSerialAlwaysOne(t *testing.T) {
	share := computeShare(16, 2, plan.Options{BuildType: plan.BuildSerial}, 0)
	if share != 1 {
		t.Fatalf("expected serial build_type to pin share to 1, got %d", share)
	}
}

func TestComputeShareHeavyHalves(t *testing.T) {
	share := computeShare(16, 2, plan.Options{BuildType: plan.BuildHeavy}, 0)
	if share != 4 {
		t.Fatalf("expected heavy build_type to halve the 8-CPU share to 4, got %d", share)
	}
}

func TestComputeShareNprocOverride(t *testing.T) {
	share := computeShare(16, 4, plan.Options{}, 2)
	if share != 2 {
		t.Fatalf("expected nproc_per_dockyard override to pin share to 2, got %d", share)
	}
}

func TestComputeSharePlanJobsCapAppliesLast(t *testing.T) {
	share := computeShare(16, 2, plan.Options{Jobs: 1}, 0)
	if share != 1 {
		t.Fatalf("expected per-plan jobs cap to win over the 8-CPU share, got %d", share)
	}
}

func TestComputeShareNeverBelowOne(t *testing.T) {
	share := computeShare(2, 8, plan.Options{}, 0)
	if share != 1 {
		t.Fatalf("expected share to floor at 1, got %d", share)
	}
}

func TestPartitionSharesSumsToTotal(t *testing.T) {
	shares := partitionShares(10, 3)
	sum := 0
	for _, s := range shares {
		sum += s
	}
	if sum > 10 {
		t.Fatalf("partitioned shares %v sum to %d, exceeds total 10", shares, sum)
	}
	if len(shares) != 3 {
		t.Fatalf("expected 3 shares, got %d", len(shares))
	}
}

func TestPartitionSharesAllocatesRemainderInOrder(t *testing.T) {
	shares := partitionShares(10, 3)
	if shares[0] < shares[2] {
		t.Fatalf("expected leftover CPUs allocated to earlier jobs first, got %v", shares)
	}
}

func TestGoEnvForOnlyAppliesToGoBuildType(t *testing.T) {
	if env := goEnvFor(plan.Options{BuildType: plan.BuildMake}, 4); env != nil {
		t.Fatalf("expected no env injection for non-go build_type, got %v", env)
	}
	env := goEnvFor(plan.Options{BuildType: plan.BuildGo}, 4)
	if env["GOFLAGS"] != "-p=4" || env["GOMAXPROCS"] != "4" {
		t.Fatalf("unexpected go env: %v", env)
	}
}
