package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wright-pm/wright/pkg/dockyard"
	"github.com/wright-pm/wright/pkg/plan"
	"github.com/wright-pm/wright/pkg/werr"
)

// passthroughHostVars are forwarded from the host environment when set,
// unless the stage's own env already names them — important for
// bootstrap/stage1 builds where CC/LDFLAGS/etc. point at non-standard
// toolchain locations.
var passthroughHostVars = []string{
	"CC", "CXX", "AR", "AS", "LD", "NM", "RANLIB", "STRIP", "OBJCOPY", "OBJDUMP",
	"CFLAGS", "CXXFLAGS", "CPPFLAGS", "LDFLAGS",
	"C_INCLUDE_PATH", "CPLUS_INCLUDE_PATH", "LIBRARY_PATH",
	"PKG_CONFIG_PATH", "PKG_CONFIG_SYSROOT_DIR",
	"MAKEFLAGS", "JOBS",
}

// Options configures one stage execution.
type Options struct {
	SrcDir     string
	PkgDir     string
	FilesDir   string
	MainPkgDir string
	LogDir     string
	Rlimits    dockyard.ResourceLimits
	CPUCount   int
	Verbose    bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// Result is the outcome of one stage execution.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	LogPath  string
}

// RunStage executes stage's script under def, substituting vars (and, in
// sandboxed dockyards, remapping SRC_DIR/PKG_DIR/FILES_DIR/MAIN_PKG_DIR to
// their in-dockyard mount points) and writing a per-stage log file framed
// with "=== Stage: name ===" headers.
func RunStage(ctx context.Context, reg *Registry, stageName string, stage plan.Stage, vars map[string]string, opts Options) (Result, error) {
	if strings.TrimSpace(stage.Script) == "" {
		return Result{}, nil
	}

	def, ok := reg.Get(stage.Executor)
	if !ok {
		return Result{}, werr.New(werr.KindBuild, "executor not found: "+stage.Executor, nil).WithStage(stageName)
	}

	level := dockyard.ParseLevel(string(stage.Level))
	effectiveVars := remapForDockyard(vars, level, opts)

	expandedScript := plan.Substitute(stage.Script, effectiveVars)

	dyCfg := dockyard.Config{
		Level:      level,
		SrcDir:     opts.SrcDir,
		PkgDir:     opts.PkgDir,
		FilesDir:   opts.FilesDir,
		MainPkgDir: opts.MainPkgDir,
		Rlimits:    opts.Rlimits,
		CPUCount:   opts.CPUCount,
		Stdout:     opts.Stdout,
		Stderr:     opts.Stderr,
	}

	env := buildEnv(stage.Env, effectiveVars)
	dyCfg.Env = env

	command, args, cleanup, err := prepareDelivery(def, opts.SrcDir, expandedScript, level)
	if err != nil {
		return Result{}, werr.New(werr.KindBuild, "failed to prepare script delivery", err).WithStage(stageName)
	}
	if cleanup != nil {
		defer cleanup()
	}

	t0 := time.Now()
	out, err := dockyard.Run(ctx, dyCfg, command, args)
	elapsed := time.Since(t0)
	if err != nil {
		return Result{}, werr.New(werr.KindBuild, "failed to run stage", err).WithStage(stageName)
	}

	logPath := writeStageLog(opts.LogDir, stageName, expandedScript, out, opts.SrcDir, elapsed)

	result := Result{ExitCode: out.ExitCode, Stdout: out.Stdout, Stderr: out.Stderr, Duration: elapsed, LogPath: logPath}
	if out.ExitCode != 0 {
		return result, werr.New(werr.KindBuild,
			fmt.Sprintf("stage %q failed with exit code %d", stageName, out.ExitCode), nil).
			WithStage(stageName).
			WithLogPath(logPath).
			WithDetail("output", outputSnippet(out.Stdout, out.Stderr))
	}
	return result, nil
}

// remapForDockyard mirrors original_source's execute_script: when running
// sandboxed, BUILD_DIR/SRC_DIR/PKG_DIR/FILES_DIR/MAIN_PKG_DIR are rewritten
// to their in-dockyard mount points. Outside a dockyard, vars pass through
// untouched.
func remapForDockyard(vars map[string]string, level dockyard.Level, opts Options) map[string]string {
	if level == dockyard.LevelNone {
		out := make(map[string]string, len(vars))
		for k, v := range vars {
			out[k] = v
		}
		return out
	}
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	if buildDir, ok := vars["BUILD_DIR"]; ok {
		if srcDir, ok := vars["SRC_DIR"]; ok {
			if suffix, found := strings.CutPrefix(buildDir, srcDir); found {
				out["BUILD_DIR"] = "/build" + suffix
			} else {
				out["BUILD_DIR"] = "/build"
			}
		}
	}
	out["SRC_DIR"] = "/build"
	out["PKG_DIR"] = "/output"
	if opts.FilesDir != "" {
		out["FILES_DIR"] = "/files"
	}
	if opts.MainPkgDir != "" {
		out["MAIN_PKG_DIR"] = "/main-pkg"
	}
	return out
}

func buildEnv(stageEnv map[string]string, vars map[string]string) []dockyard.EnvVar {
	set := make(map[string]string)
	var order []string
	add := func(k, v string) {
		if _, exists := set[k]; !exists {
			order = append(order, k)
		}
		set[k] = v
	}

	for k, v := range stageEnv {
		add(k, plan.Substitute(v, vars))
	}
	// Expose build variables, without overriding stage env.
	for k, v := range vars {
		if _, exists := set[k]; !exists {
			add(k, v)
		}
	}
	// Auto-inject parallel-job env vars so build tools respect `jobs`
	// without the plan having to pass -j$NPROC by hand.
	if nproc, ok := vars["NPROC"]; ok {
		if _, exists := set["CMAKE_BUILD_PARALLEL_LEVEL"]; !exists {
			add("CMAKE_BUILD_PARALLEL_LEVEL", nproc)
		}
		if _, exists := set["MAKEFLAGS"]; !exists {
			add("MAKEFLAGS", "-j"+nproc)
		}
	}
	for _, key := range passthroughHostVars {
		if _, exists := set[key]; exists {
			continue
		}
		if v, ok := os.LookupEnv(key); ok {
			add(key, v)
		}
	}

	sort.Strings(order)
	out := make([]dockyard.EnvVar, 0, len(order))
	for _, k := range order {
		out = append(out, dockyard.EnvVar{Key: k, Value: set[k]})
	}
	return out
}

// prepareDelivery writes the script (for tempfile delivery) and returns
// the command/args to execute plus a cleanup func, or builds a
// stdin-delivery invocation with no temp file at all.
func prepareDelivery(def Definition, srcDir, script string, level dockyard.Level) (string, []string, func(), error) {
	args := append([]string(nil), def.Args...)

	if def.Delivery == DeliveryStdin {
		args = append(args, script)
		return def.Command, args, nil, nil
	}

	scriptName := ".wright_script" + def.TempfileExtension
	scriptPath := filepath.Join(srcDir, scriptName)
	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		return "", nil, nil, err
	}
	cleanup := func() { _ = os.Remove(scriptPath) }

	if level == dockyard.LevelNone {
		args = append(args, scriptPath)
	} else {
		args = append(args, "/build/"+scriptName)
	}
	return def.Command, args, cleanup, nil
}

func writeStageLog(logDir, stageName, script string, out dockyard.Output, workingDir string, elapsed time.Duration) string {
	if logDir == "" {
		return ""
	}
	logPath := filepath.Join(logDir, stageName+".log")
	content := fmt.Sprintf(
		"=== Stage: %s ===\n=== Exit code: %d ===\n=== Duration: %.1fs ===\n=== Working dir: %s ===\n\n--- script ---\n%s\n--- stdout ---\n%s\n--- stderr ---\n%s\n",
		stageName, out.ExitCode, elapsed.Seconds(), workingDir,
		strings.TrimSpace(script), out.Stdout, out.Stderr,
	)
	_ = os.MkdirAll(logDir, 0o755)
	_ = os.WriteFile(logPath, []byte(content), 0o644)
	return logPath
}

// outputSnippet favors stderr, falling back to stdout, and trims to the
// last 40 lines so a failure message stays readable.
func outputSnippet(stdout, stderr string) string {
	relevant := strings.TrimSpace(stderr)
	if relevant == "" {
		relevant = strings.TrimSpace(stdout)
	}
	lines := strings.Split(relevant, "\n")
	const maxLines = 40
	if len(lines) > maxLines {
		omitted := len(lines) - maxLines
		return fmt.Sprintf("... (%d lines omitted) ...\n%s", omitted, strings.Join(lines[len(lines)-maxLines:], "\n"))
	}
	return relevant
}
