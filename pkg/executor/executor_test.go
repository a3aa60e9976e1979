package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/wright-pm/wright/pkg/plan"
	"github.com/wright-pm/wright/pkg/werr"
)

func TestDefaultRegistryHasShell(t *testing.T) {
	reg := NewRegistry()
	def, ok := reg.Get("shell")
	if !ok {
		t.Fatal("expected default shell executor to be registered")
	}
	if def.Command != "/bin/bash" || def.Delivery != DeliveryTempfile {
		t.Fatalf("unexpected default shell definition: %+v", def)
	}
}

func TestLoadDirRegistersCustomExecutor(t *testing.T) {
	dir := t.TempDir()
	toml := `[executor]
name = "python"
command = "/usr/bin/python3"
args = ["-u"]
delivery = "stdin"
`
	if err := os.WriteFile(filepath.Join(dir, "python.toml"), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	reg := NewRegistry()
	if err := reg.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir() error: %v", err)
	}
	def, ok := reg.Get("python")
	if !ok {
		t.Fatal("expected python executor to be registered")
	}
	if def.Delivery != DeliveryStdin || def.Command != "/usr/bin/python3" {
		t.Fatalf("unexpected parsed definition: %+v", def)
	}
}

func TestLoadDirMissingIsNotError(t *testing.T) {
	reg := NewRegistry()
	if err := reg.LoadDir(filepath.Join(t.TempDir(), "does-not-exist")); err != nil {
		t.Fatalf("expected no error for missing dir, got %v", err)
	}
}

func TestRunStageSkipsEmptyScript(t *testing.T) {
	reg := NewRegistry()
	result, err := RunStage(context.Background(), reg, "check", plan.Stage{Executor: "shell"}, nil, Options{SrcDir: t.TempDir()})
	if err != nil {
		t.Fatalf("RunStage() error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Fatalf("expected zero-value result for empty script, got %+v", result)
	}
}

func TestRunStageSuccessWritesLog(t *testing.T) {
	srcDir := t.TempDir()
	logDir := t.TempDir()
	reg := NewRegistry()
	stage := plan.Stage{Executor: "shell", Level: plan.LevelNone, Script: "echo ${PKG_NAME} done"}
	vars := map[string]string{"PKG_NAME": "hello"}

	result, err := RunStage(context.Background(), reg, "configure", stage, vars, Options{SrcDir: srcDir, LogDir: logDir})
	if err != nil {
		t.Fatalf("RunStage() error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Fatalf("unexpected exit code: %d", result.ExitCode)
	}
	data, err := os.ReadFile(filepath.Join(logDir, "configure.log"))
	if err != nil {
		t.Fatalf("expected log file to be written: %v", err)
	}
	if !contains(string(data), "hello done") {
		t.Fatalf("expected log to contain expanded script output reference, got: %s", data)
	}
}

func TestRunStageFailureCarriesSnippet(t *testing.T) {
	srcDir := t.TempDir()
	reg := NewRegistry()
	stage := plan.Stage{Executor: "shell", Level: plan.LevelNone, Script: "echo boom 1>&2; exit 3"}

	_, err := RunStage(context.Background(), reg, "compile", stage, nil, Options{SrcDir: srcDir})
	if err == nil {
		t.Fatal("expected an error for a non-zero exit stage")
	}
	if !werr.Is(err, werr.KindBuild) {
		t.Fatalf("expected KindBuild, got %v", err)
	}
}

func TestRunStageUnknownExecutor(t *testing.T) {
	reg := NewRegistry()
	stage := plan.Stage{Executor: "does-not-exist", Script: "echo hi"}
	_, err := RunStage(context.Background(), reg, "compile", stage, nil, Options{SrcDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected error for unknown executor")
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && indexOf(s, sub) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
