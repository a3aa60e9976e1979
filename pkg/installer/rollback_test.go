package installer

import (
	"errors"
	"testing"
)

func TestRollbackStackRunsInReverseOrder(t *testing.T) {
	var order []int
	var r rollbackStack
	r.push(func() error { order = append(order, 1); return nil })
	r.push(func() error { order = append(order, 2); return nil })
	r.push(func() error { order = append(order, 3); return nil })

	if err := r.run(); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	want := []int{3, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("unexpected order: %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("unexpected order: %v, want %v", order, want)
		}
	}
}

func TestRollbackStackContinuesPastFailure(t *testing.T) {
	var ran []int
	var r rollbackStack
	r.push(func() error { ran = append(ran, 1); return nil })
	r.push(func() error { ran = append(ran, 2); return errors.New("boom") })
	r.push(func() error { ran = append(ran, 3); return nil })

	err := r.run()
	if err == nil {
		t.Fatal("expected an error from the failing step")
	}
	if len(ran) != 3 {
		t.Fatalf("expected every step to run despite the failure, got %v", ran)
	}
}
