// Package dockyard runs build stage scripts under namespace isolation,
// shelling out to bubblewrap (bwrap) rather than managing clone/mount
// syscalls directly — the same approach the sandboxing examples in this
// codebase's lineage take for process isolation.
package dockyard

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/wright-pm/wright/pkg/werr"
)

// Level is the isolation level a command runs under.
type Level string

const (
	LevelNone    Level = "none"
	LevelRelaxed Level = "relaxed"
	LevelStrict  Level = "strict"
)

// ParseLevel mirrors the original tool's permissive parsing: anything
// that isn't "none" or "relaxed" is treated as "strict".
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelNone:
		return LevelNone
	case LevelRelaxed:
		return LevelRelaxed
	default:
		return LevelStrict
	}
}

// ResourceLimits caps what a dockyard-run process may consume.
type ResourceLimits struct {
	// MemoryMB caps RLIMIT_AS in megabytes. Generous by design: tools
	// like rustc/the JVM/the Go toolchain reserve large virtual address
	// ranges without ever touching most of them.
	MemoryMB uint64
	// CPUTimeSecs caps RLIMIT_CPU, user+system seconds.
	CPUTimeSecs uint64
	// TimeoutSecs is a wall-clock limit enforced by a watchdog goroutine,
	// not by rlimit — rlimit has no wall-clock equivalent.
	TimeoutSecs uint64
}

// Bind is one extra bind mount beyond the standard build/output layout.
type Bind struct {
	Host     string
	Dest     string
	ReadOnly bool
}

// Config describes one dockyard invocation.
type Config struct {
	Level      Level
	SrcDir     string
	PkgDir     string
	TaskID     string
	FilesDir   string
	MainPkgDir string // main package's pkg_dir, mounted at /main-pkg for split stages
	ExtraBinds []Bind
	Env        []EnvVar
	Rlimits    ResourceLimits
	// CPUCount pins the process to this many CPUs via sched_setaffinity
	// so that `nproc` inside the dockyard reports it naturally.
	CPUCount int
	// Stdout/Stderr receive a live tee of the command's output, in
	// addition to the buffered copies returned by Run.
	Stdout io.Writer
	Stderr io.Writer
}

// EnvVar is one key/value pair forwarded into the dockyard.
type EnvVar struct {
	Key   string
	Value string
}

// Output is everything Run captured from a completed command.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Run executes command/args under the configured isolation level.
// LevelNone runs it directly on the host inside a fresh process group so
// the wall-clock watchdog can reap the whole group. LevelRelaxed and
// LevelStrict shell out to bwrap.
func Run(ctx context.Context, cfg Config, command string, args []string) (Output, error) {
	if cfg.Level == LevelNone {
		return runDirect(ctx, cfg, command, args)
	}
	return runBwrap(ctx, cfg, command, args)
}

func runDirect(ctx context.Context, cfg Config, command string, args []string) (Output, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = cfg.SrcDir
	// Unsandboxed runs inherit the host environment and layer stage
	// overrides on top, matching LevelNone in bwrap.rs/native.rs which
	// never clears the parent's env — only bwrap's --clearenv does.
	cmd.Env = append(os.Environ(), buildEnv(cfg.Env)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	return runAndCapture(cmd, cfg)
}

func runBwrap(ctx context.Context, cfg Config, command string, args []string) (Output, error) {
	bwrapPath, err := exec.LookPath("bwrap")
	if err != nil {
		return Output{}, werr.New(werr.KindCritical, "bubblewrap (bwrap) not found on PATH — install bubblewrap or run with dockyard level \"none\"", err)
	}

	bwrapArgs := BuildArgs(cfg, command, args)
	cmd := exec.CommandContext(ctx, bwrapPath, bwrapArgs...)
	cmd.Dir = cfg.SrcDir

	// Explicit minimal environment for the bwrap process itself: if
	// cmd.Env were nil, Go would inherit the full parent environment,
	// which ends up visible via /proc/<pid>/environ to anything that can
	// read it even though bwrap's own --clearenv scrubs the sandboxed
	// child's environment.
	cmd.Env = []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"TERM=" + os.Getenv("TERM"),
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	return runAndCapture(cmd, cfg)
}

func runAndCapture(cmd *exec.Cmd, cfg Config) (Output, error) {
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = teeWriter(&stdoutBuf, cfg.Stdout)
	cmd.Stderr = teeWriter(&stderrBuf, cfg.Stderr)

	if err := cmd.Start(); err != nil {
		return Output{}, werr.New(werr.KindBuild, "failed to start dockyard command", err)
	}

	if err := applyResourceLimits(cmd.Process.Pid, cfg.Rlimits); err != nil {
		_ = cmd.Process.Kill()
		return Output{}, werr.New(werr.KindResource, "failed to apply resource limits", err)
	}
	if cfg.CPUCount > 0 {
		if err := pinCPUs(cmd.Process.Pid, cfg.CPUCount); err != nil {
			_ = cmd.Process.Kill()
			return Output{}, werr.New(werr.KindResource, "failed to pin CPU affinity", err)
		}
	}

	var done atomic.Bool
	var watchdogWG sync.WaitGroup
	if cfg.Rlimits.TimeoutSecs > 0 {
		watchdogWG.Add(1)
		go func() {
			defer watchdogWG.Done()
			watch(cmd.Process.Pid, cfg.Rlimits.TimeoutSecs, &done)
		}()
	}

	err := cmd.Wait()
	done.Store(true)
	watchdogWG.Wait()

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return Output{}, werr.New(werr.KindBuild, "dockyard command failed", err)
		}
	}

	return Output{ExitCode: exitCode, Stdout: stdoutBuf.String(), Stderr: stderrBuf.String()}, nil
}

func teeWriter(buf io.Writer, live io.Writer) io.Writer {
	if live == nil {
		return buf
	}
	return io.MultiWriter(buf, live)
}

// watch kills the process group rooted at pid once timeoutSecs elapses,
// unless done is set first. Killing the group (not just the process)
// matters because make/gcc-style children otherwise survive as orphans.
func watch(pid int, timeoutSecs uint64, done *atomic.Bool) {
	timer := time.NewTimer(time.Duration(timeoutSecs) * time.Second)
	defer timer.Stop()
	<-timer.C
	if done.Load() {
		return
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

// applyResourceLimits sets RLIMIT_AS and RLIMIT_CPU on an already-started
// process via prlimit(2) — Go's os/exec offers no pre-exec hook to apply
// rlimits before the child's own code runs, so this applies them
// immediately after Start, accepting the brief window before they take
// effect as the cost of staying in pure Go rather than reaching for cgo.
func applyResourceLimits(pid int, limits ResourceLimits) error {
	if limits.MemoryMB > 0 {
		bytesLimit := limits.MemoryMB * 1024 * 1024
		rlim := unix.Rlimit{Cur: bytesLimit, Max: bytesLimit}
		if err := unix.Prlimit(pid, unix.RLIMIT_AS, &rlim, nil); err != nil {
			return err
		}
	}
	if limits.CPUTimeSecs > 0 {
		rlim := unix.Rlimit{Cur: limits.CPUTimeSecs, Max: limits.CPUTimeSecs}
		if err := unix.Prlimit(pid, unix.RLIMIT_CPU, &rlim, nil); err != nil {
			return err
		}
	}
	return nil
}

// pinCPUs restricts pid to the first n CPUs of the host's set via
// sched_setaffinity, so `nproc` inside the dockyard reports n without
// any NPROC environment variable trickery.
func pinCPUs(pid, n int) error {
	var set unix.CPUSet
	set.Zero()
	for i := 0; i < n; i++ {
		set.Set(i)
	}
	return unix.SchedSetaffinity(pid, &set)
}

func buildEnv(vars []EnvVar) []string {
	env := make([]string, 0, len(vars))
	for _, v := range vars {
		env = append(env, v.Key+"="+v.Value)
	}
	return env
}
