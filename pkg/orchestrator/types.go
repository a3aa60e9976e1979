package orchestrator

import "github.com/wright-pm/wright/pkg/plan"

// Reason is the construction-plan label spec §4.9 prints next to each
// scheduled job.
type Reason string

const (
	ReasonNew         Reason = "NEW"
	ReasonLinkRebuild Reason = "LINK-REBUILD"
	ReasonRevRebuild  Reason = "REV-REBUILD"
	ReasonMVP         Reason = "MVP"
	ReasonFull        Reason = "FULL"
)

// Job is one scheduled unit of work: a plan built under a given phase,
// for a given reason. A plan caught in a dependency cycle gets two
// Jobs — an MVP bootstrap pass and a forced FULL pass — keyed
// separately so both can hold distinct positions in the schedule.
type Job struct {
	Plan   *plan.Plan
	Phase  plan.Phase
	Reason Reason
	Force  bool
}

// key identifies a job uniquely within one run: a plan normally
// contributes a single job, but cycle members contribute one per
// phase.
func (j *Job) key() string {
	return j.Plan.Name + "#" + string(j.Phase)
}
