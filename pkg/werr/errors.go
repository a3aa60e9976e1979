// Package werr defines Wright's error-kind taxonomy, shared by every
// package and command. Errors are classified by behavior (retryable,
// fatal-for-job, fatal-for-run) rather than by the package that raised
// them, so the orchestrator and installer can make cancellation and exit
// decisions without importing their callees' internals.
package werr

import (
	"errors"
	"fmt"
)

// Kind classifies an error per the behavior it should trigger.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindChecksum    Kind = "checksum"
	KindNetwork     Kind = "network"
	KindBuild       Kind = "build"
	KindResource    Kind = "resource"
	KindDependency  Kind = "dependency"
	KindConflict    Kind = "conflict"
	KindCritical    Kind = "critical"
	KindCycle       Kind = "cycle"
	KindDatabase    Kind = "database"
	KindTransaction Kind = "transaction"
)

// exitCodes maps each Kind to a stable process exit code. Codes start at
// 70 to stay clear of the shell-reserved 126/127 and signal-exit range
// (128+n) a watchdog-killed stage may also produce.
var exitCodes = map[Kind]int{
	KindValidation:  70,
	KindChecksum:    71,
	KindNetwork:     72,
	KindBuild:       73,
	KindResource:    74,
	KindDependency:  75,
	KindConflict:    76,
	KindCritical:    77,
	KindCycle:       78,
	KindDatabase:    79,
	KindTransaction: 80,
}

// WrightError is a classified error carrying the package/stage context
// needed to produce spec §7's required user-visible shape: kind, affected
// package and stage, a remediation hint, and a log path.
type WrightError struct {
	Kind      Kind
	Message   string
	Package   string
	Stage     string
	Hint      string
	LogPath   string
	Err       error
	Details   map[string]any
}

func (e *WrightError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Package != "" {
		msg += fmt.Sprintf(" (package=%s)", e.Package)
	}
	if e.Stage != "" {
		msg += fmt.Sprintf(" (stage=%s)", e.Stage)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Hint != "" {
		msg += " — " + e.Hint
	}
	if e.LogPath != "" {
		msg += fmt.Sprintf(" (log: %s)", e.LogPath)
	}
	return msg
}

func (e *WrightError) Unwrap() error { return e.Err }

func (e *WrightError) Is(target error) bool {
	t, ok := target.(*WrightError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a WrightError of the given kind wrapping err.
func New(kind Kind, message string, err error) *WrightError {
	return &WrightError{Kind: kind, Message: message, Err: err}
}

func (e *WrightError) WithPackage(name string) *WrightError { e.Package = name; return e }
func (e *WrightError) WithStage(stage string) *WrightError  { e.Stage = stage; return e }
func (e *WrightError) WithHint(hint string) *WrightError    { e.Hint = hint; return e }
func (e *WrightError) WithLogPath(path string) *WrightError { e.LogPath = path; return e }
func (e *WrightError) WithDetail(key string, value any) *WrightError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// KindOf returns the Kind of err if it (or something it wraps) is a
// *WrightError, and false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *WrightError
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsRetryable reports whether the error's kind is automatically retried
// by its owning subsystem (Checksum retries once, Network retries up to
// the configured retry_count).
func IsRetryable(err error) bool {
	k, ok := KindOf(err)
	return ok && (k == KindNetwork || k == KindChecksum)
}

// IsFatalForRun reports whether err should cancel the whole orchestrator
// or installer run rather than just the job that raised it.
func IsFatalForRun(err error) bool {
	k, ok := KindOf(err)
	if !ok {
		return true
	}
	switch k {
	case KindCycle, KindDependency, KindConflict, KindCritical, KindDatabase, KindTransaction:
		return true
	default:
		return false
	}
}

// ExitCodeOf returns the process exit code for err: the mapped code for
// a *WrightError, or 1 for any other non-nil error, or 0 for nil.
func ExitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if k, ok := KindOf(err); ok {
		if code, ok := exitCodes[k]; ok {
			return code
		}
	}
	return 1
}
