package plan

import (
	"os"
	"path/filepath"
	"testing"
)

func writePlan(t *testing.T, dir, name, body string) {
	t.Helper()
	pkgDir := filepath.Join(dir, name)
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, "plan.toml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCacheLoadAndLookup(t *testing.T) {
	dir := t.TempDir()
	writePlan(t, dir, "hello", helloPlan)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	p, ok := c.Lookup("hello")
	if !ok {
		t.Fatal("expected to find hello in cache")
	}
	if p.Name != "hello" {
		t.Fatalf("unexpected plan: %+v", p)
	}
	if len(c.All()) != 1 {
		t.Fatalf("expected exactly one loaded plan, got %d", len(c.All()))
	}
}

func TestCacheRejectsDirectoryNameMismatch(t *testing.T) {
	dir := t.TempDir()
	writePlan(t, dir, "not-hello", helloPlan)

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error when directory name does not match plan name")
	}
}

func TestCacheAssemblyExpansion(t *testing.T) {
	dir := t.TempDir()
	writePlan(t, dir, "hello", helloPlan)
	assembliesDir := filepath.Join(dir, "assemblies")
	if err := os.MkdirAll(assembliesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	body := "base = [\"hello\"]\n"
	if err := os.WriteFile(filepath.Join(assembliesDir, "core.toml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	members := c.ExpandAssembly("@base")
	if len(members) != 1 || members[0] != "hello" {
		t.Fatalf("ExpandAssembly(@base) = %v", members)
	}
	if got := c.ExpandAssembly("hello"); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("ExpandAssembly(hello) = %v, want [hello]", got)
	}
}
