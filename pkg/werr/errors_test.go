package werr

import (
	"errors"
	"testing"
)

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := New(KindBuild, "stage failed", cause).WithPackage("hello").WithStage("compile")

	if !errors.Is(err, err) {
		t.Fatalf("expected self-match via errors.Is")
	}
	if got := errors.Unwrap(err); got != cause {
		t.Fatalf("Unwrap() = %v, want %v", got, cause)
	}
	if k, ok := KindOf(err); !ok || k != KindBuild {
		t.Fatalf("KindOf() = %v, %v, want KindBuild, true", k, ok)
	}
}

func TestExitCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("plain"), 1},
		{New(KindValidation, "bad plan", nil), 70},
		{New(KindCycle, "cycle", nil), 78},
		{New(KindTransaction, "pending", nil), 80},
	}
	for _, c := range cases {
		if got := ExitCodeOf(c.err); got != c.want {
			t.Errorf("ExitCodeOf(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(New(KindNetwork, "timeout", nil)) {
		t.Error("network error should be retryable")
	}
	if !IsRetryable(New(KindChecksum, "mismatch", nil)) {
		t.Error("checksum error should be retryable")
	}
	if IsRetryable(New(KindBuild, "failed", nil)) {
		t.Error("build error should not be retryable")
	}
}

func TestIsFatalForRun(t *testing.T) {
	if !IsFatalForRun(New(KindCycle, "cycle", nil)) {
		t.Error("cycle error should be fatal for run")
	}
	if IsFatalForRun(New(KindBuild, "failed", nil)) {
		t.Error("build error should only be fatal for its job")
	}
	if !IsFatalForRun(errors.New("unclassified")) {
		t.Error("unclassified errors should default to fatal")
	}
}

func TestWrightErrorMessageShape(t *testing.T) {
	err := New(KindBuild, "compile failed", errors.New("exit 1")).
		WithPackage("hello").
		WithStage("compile").
		WithHint("check the log").
		WithLogPath("/var/log/wright/hello.log")

	msg := err.Error()
	for _, want := range []string{"hello", "compile", "exit 1", "check the log", "/var/log/wright/hello.log"} {
		if !contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}
