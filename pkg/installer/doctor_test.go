package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/wright-pm/wright/pkg/archive"
)

func TestDoctorReportsUnsatisfiedDependency(t *testing.T) {
	in, _, _ := setupTestInstaller(t)
	ctx := context.Background()

	app := buildArchive(t, archive.PkgInfo{
		Name: "app", Version: "1.0.0", Release: 1, Arch: "x86_64",
		RuntimeDeps: []string{"libfoo >= 2.0"},
	}, archive.InstallScripts{}, map[string]string{"usr/bin/app": "x"})
	if err := in.Install(ctx, app, InstallOptions{SkipDeps: true}); err != nil {
		t.Fatalf("Install() error: %v", err)
	}
	lib := buildArchive(t, archive.PkgInfo{Name: "libfoo", Version: "1.0.0", Release: 1, Arch: "x86_64"},
		archive.InstallScripts{}, map[string]string{"usr/lib/libfoo.so": "x"})
	if err := in.Install(ctx, lib, InstallOptions{}); err != nil {
		t.Fatalf("Install(libfoo) error: %v", err)
	}

	report, err := in.Doctor(ctx)
	if err != nil {
		t.Fatalf("Doctor() error: %v", err)
	}
	if len(report.UnsatisfiedDeps) != 1 {
		t.Fatalf("expected one unsatisfied dependency, got %v", report.UnsatisfiedDeps)
	}
}

func TestDoctorReportsActiveShadow(t *testing.T) {
	in, _, _ := setupTestInstaller(t)
	ctx := context.Background()

	a := buildArchive(t, archive.PkgInfo{Name: "a", Version: "1.0.0", Release: 1, Arch: "x86_64"},
		archive.InstallScripts{}, map[string]string{"usr/bin/shared": "a"})
	if err := in.Install(ctx, a, InstallOptions{}); err != nil {
		t.Fatalf("Install(a) error: %v", err)
	}
	b := buildArchive(t, archive.PkgInfo{Name: "b", Version: "1.0.0", Release: 1, Arch: "x86_64"},
		archive.InstallScripts{}, map[string]string{"usr/bin/shared": "b"})
	if err := in.Install(ctx, b, InstallOptions{Force: true}); err != nil {
		t.Fatalf("forced Install(b) error: %v", err)
	}

	report, err := in.Doctor(ctx)
	if err != nil {
		t.Fatalf("Doctor() error: %v", err)
	}
	if len(report.ActiveShadows) != 1 {
		t.Fatalf("expected one active shadow, got %v", report.ActiveShadows)
	}
}

func TestDoctorFindsCircularDependency(t *testing.T) {
	in, st, _ := setupTestInstaller(t)
	ctx := context.Background()

	a := buildArchive(t, archive.PkgInfo{Name: "a", Version: "1.0.0", Release: 1, Arch: "x86_64"},
		archive.InstallScripts{}, map[string]string{"usr/bin/a": "x"})
	if err := in.Install(ctx, a, InstallOptions{}); err != nil {
		t.Fatalf("Install(a) error: %v", err)
	}
	b := buildArchive(t, archive.PkgInfo{
		Name: "b", Version: "1.0.0", Release: 1, Arch: "x86_64",
		RuntimeDeps: []string{"a"},
	}, archive.InstallScripts{}, map[string]string{"usr/bin/b": "x"})
	if err := in.Install(ctx, b, InstallOptions{}); err != nil {
		t.Fatalf("Install(b) error: %v", err)
	}

	// Manually inject a back-edge a -> b to create a cycle; no archive
	// round trip can express one since its own dependency set is only
	// known at install time.
	tx, err := st.BeginTx(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO dependencies (package_id, depends_on, version_constraint, dep_type)
		SELECT id, 'b', '', 'runtime' FROM packages WHERE name = 'a'`); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	report, err := in.Doctor(ctx)
	if err != nil {
		t.Fatalf("Doctor() error: %v", err)
	}
	if len(report.CircularDeps) == 0 {
		t.Fatal("expected at least one circular dependency to be reported")
	}
}

func TestVerifyReportsMissingAndModifiedFiles(t *testing.T) {
	in, _, rootDir := setupTestInstaller(t)
	ctx := context.Background()

	archivePath := buildArchive(t, archive.PkgInfo{Name: "app", Version: "1.0.0", Release: 1, Arch: "x86_64"},
		archive.InstallScripts{}, map[string]string{"usr/bin/app": "original", "usr/bin/app2": "x"})
	if err := in.Install(ctx, archivePath, InstallOptions{}); err != nil {
		t.Fatalf("Install() error: %v", err)
	}

	if err := os.WriteFile(filepath.Join(rootDir, "usr", "bin", "app"), []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(rootDir, "usr", "bin", "app2")); err != nil {
		t.Fatal(err)
	}

	issues, err := in.Verify(ctx, "app")
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("expected two issues, got %v", issues)
	}
}
