package installer

import "github.com/hashicorp/go-multierror"

// undoStep reverses one filesystem change made during a transaction.
type undoStep func() error

// rollbackStack accumulates undo steps in the order they were taken and
// runs them in reverse, continuing past an individual failure so one
// stuck path never blocks the rest of the undo — the same best-effort
// posture a crash-recovery replay must take, since there is no one left
// to retry a failed step.
type rollbackStack struct {
	steps []undoStep
}

func (r *rollbackStack) push(step undoStep) {
	r.steps = append(r.steps, step)
}

func (r *rollbackStack) run() error {
	var result error
	for i := len(r.steps) - 1; i >= 0; i-- {
		if err := r.steps[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}
