package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestRunInstallScriptEmptyIsNoOp(t *testing.T) {
	if err := runInstallScript(context.Background(), "", t.TempDir(), "pkg"); err != nil {
		t.Fatalf("expected no error for empty script, got %v", err)
	}
}

func TestRunInstallScriptRunsWithRootEnv(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	script := `echo -n "$ROOT" > ` + marker
	if err := runInstallScript(context.Background(), script, dir, "pkg"); err != nil {
		t.Fatalf("runInstallScript() error: %v", err)
	}
	data, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("expected script to run: %v", err)
	}
	if string(data) != dir {
		t.Fatalf("expected ROOT=%q, got %q", dir, data)
	}
}

func TestRunInstallScriptFailureReturnsError(t *testing.T) {
	err := runInstallScript(context.Background(), "exit 7", t.TempDir(), "pkg")
	if err == nil {
		t.Fatal("expected error from a failing script")
	}
}
