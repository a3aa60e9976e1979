package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/wright-pm/wright/pkg/archive"
	"github.com/wright-pm/wright/pkg/werr"
)

func TestInstallRecordsPackageAndFiles(t *testing.T) {
	in, st, rootDir := setupTestInstaller(t)
	ctx := context.Background()

	archivePath := buildArchive(t, archive.PkgInfo{
		Name: "hello", Version: "1.0.0", Release: 1, Arch: "x86_64",
	}, archive.InstallScripts{}, map[string]string{"usr/bin/hello": "#!/bin/sh\necho hi\n"})

	if err := in.Install(ctx, archivePath, InstallOptions{}); err != nil {
		t.Fatalf("Install() error: %v", err)
	}

	pkg, ok, err := st.LookupByName(ctx, "hello")
	if err != nil || !ok {
		t.Fatalf("LookupByName() = %v, %v, %v", pkg, ok, err)
	}
	if pkg.Version != "1.0.0" {
		t.Fatalf("unexpected version: %+v", pkg)
	}

	data, err := os.ReadFile(filepath.Join(rootDir, "usr", "bin", "hello"))
	if err != nil {
		t.Fatalf("expected file copied into root: %v", err)
	}
	if string(data) != "#!/bin/sh\necho hi\n" {
		t.Fatalf("unexpected file content: %q", data)
	}
}

func TestInstallRejectsDuplicate(t *testing.T) {
	in, _, _ := setupTestInstaller(t)
	ctx := context.Background()

	archivePath := buildArchive(t, archive.PkgInfo{Name: "hello", Version: "1.0.0", Release: 1, Arch: "x86_64"},
		archive.InstallScripts{}, map[string]string{"usr/bin/hello": "x"})

	if err := in.Install(ctx, archivePath, InstallOptions{}); err != nil {
		t.Fatalf("first Install() error: %v", err)
	}
	err := in.Install(ctx, archivePath, InstallOptions{})
	if err == nil {
		t.Fatal("expected error installing an already-installed package")
	}
	if !werr.Is(err, werr.KindConflict) {
		t.Fatalf("expected KindConflict, got %v", err)
	}
}

func TestInstallMissingDependencyErrors(t *testing.T) {
	in, _, _ := setupTestInstaller(t)
	ctx := context.Background()

	archivePath := buildArchive(t, archive.PkgInfo{
		Name: "app", Version: "1.0.0", Release: 1, Arch: "x86_64",
		RuntimeDeps: []string{"libfoo >= 1.0"},
	}, archive.InstallScripts{}, map[string]string{"usr/bin/app": "x"})

	err := in.Install(ctx, archivePath, InstallOptions{})
	if err == nil {
		t.Fatal("expected missing dependency error")
	}
	if !werr.Is(err, werr.KindDependency) {
		t.Fatalf("expected KindDependency, got %v", err)
	}
}

func TestInstallSkipDepsBypassesCheck(t *testing.T) {
	in, _, _ := setupTestInstaller(t)
	ctx := context.Background()

	archivePath := buildArchive(t, archive.PkgInfo{
		Name: "app", Version: "1.0.0", Release: 1, Arch: "x86_64",
		RuntimeDeps: []string{"libfoo"},
	}, archive.InstallScripts{}, map[string]string{"usr/bin/app": "x"})

	if err := in.Install(ctx, archivePath, InstallOptions{SkipDeps: true}); err != nil {
		t.Fatalf("Install() with SkipDeps error: %v", err)
	}
}

func TestInstallFileConflictWithoutForce(t *testing.T) {
	in, _, _ := setupTestInstaller(t)
	ctx := context.Background()

	first := buildArchive(t, archive.PkgInfo{Name: "a", Version: "1.0.0", Release: 1, Arch: "x86_64"},
		archive.InstallScripts{}, map[string]string{"usr/bin/shared": "a"})
	if err := in.Install(ctx, first, InstallOptions{}); err != nil {
		t.Fatalf("Install(a) error: %v", err)
	}

	second := buildArchive(t, archive.PkgInfo{Name: "b", Version: "1.0.0", Release: 1, Arch: "x86_64"},
		archive.InstallScripts{}, map[string]string{"usr/bin/shared": "b"})
	err := in.Install(ctx, second, InstallOptions{})
	if err == nil {
		t.Fatal("expected file conflict error")
	}
	if !werr.Is(err, werr.KindConflict) {
		t.Fatalf("expected KindConflict, got %v", err)
	}
}

func TestInstallForceShadowsFile(t *testing.T) {
	in, st, rootDir := setupTestInstaller(t)
	ctx := context.Background()

	first := buildArchive(t, archive.PkgInfo{Name: "a", Version: "1.0.0", Release: 1, Arch: "x86_64"},
		archive.InstallScripts{}, map[string]string{"usr/bin/shared": "a"})
	if err := in.Install(ctx, first, InstallOptions{}); err != nil {
		t.Fatalf("Install(a) error: %v", err)
	}

	second := buildArchive(t, archive.PkgInfo{Name: "b", Version: "1.0.0", Release: 1, Arch: "x86_64"},
		archive.InstallScripts{}, map[string]string{"usr/bin/shared": "b"})
	if err := in.Install(ctx, second, InstallOptions{Force: true}); err != nil {
		t.Fatalf("forced Install(b) error: %v", err)
	}

	shadows, err := st.ShadowsOfPath(ctx, "/usr/bin/shared")
	if err != nil {
		t.Fatal(err)
	}
	if len(shadows) != 1 || shadows[0].ShadowedByPackage != "b" || shadows[0].OwnerPackage != "a" {
		t.Fatalf("unexpected shadow record: %+v", shadows)
	}
	if shadows[0].BackupPath == "" {
		t.Fatal("expected a durable backup path to be recorded for a's shadowed file")
	}
	if data, err := os.ReadFile(shadows[0].BackupPath); err != nil || string(data) != "a" {
		t.Fatalf("expected backup to hold a's original content, got %q, %v", data, err)
	}

	data, err := os.ReadFile(filepath.Join(rootDir, "usr", "bin", "shared"))
	if err != nil || string(data) != "b" {
		t.Fatalf("expected b's content on disk, got %q, %v", data, err)
	}
}

func TestInstallConflictLeavesOriginalFileUntouched(t *testing.T) {
	in, st, rootDir := setupTestInstaller(t)
	ctx := context.Background()

	first := buildArchive(t, archive.PkgInfo{Name: "a", Version: "1.0.0", Release: 1, Arch: "x86_64"},
		archive.InstallScripts{}, map[string]string{"usr/bin/shared": "original", "usr/bin/other": "x"})
	if err := in.Install(ctx, first, InstallOptions{}); err != nil {
		t.Fatalf("Install(a) error: %v", err)
	}

	second := buildArchive(t, archive.PkgInfo{Name: "b", Version: "1.0.0", Release: 1, Arch: "x86_64"},
		archive.InstallScripts{}, map[string]string{"usr/bin/shared": "replacement"})
	if err := in.Install(ctx, second, InstallOptions{}); err == nil {
		t.Fatal("expected conflict error")
	}

	data, err := os.ReadFile(filepath.Join(rootDir, "usr", "bin", "shared"))
	if err != nil || string(data) != "original" {
		t.Fatalf("expected original content preserved, got %q, %v", data, err)
	}
	if _, ok, _ := st.LookupByName(ctx, "b"); ok {
		t.Fatal("expected b not to be recorded as installed")
	}
}

func TestInstallAbortsOnFailingPostInstall(t *testing.T) {
	in, st, rootDir := setupTestInstaller(t)
	ctx := context.Background()

	archivePath := buildArchive(t, archive.PkgInfo{Name: "hello", Version: "1.0.0", Release: 1, Arch: "x86_64"},
		archive.InstallScripts{PostInstall: "exit 1"}, map[string]string{"usr/bin/hello": "x"})

	err := in.Install(ctx, archivePath, InstallOptions{})
	if err == nil {
		t.Fatal("expected a failing post_install to abort the install")
	}
	if !werr.Is(err, werr.KindTransaction) {
		t.Fatalf("expected KindTransaction, got %v", err)
	}

	if _, ok, _ := st.LookupByName(ctx, "hello"); ok {
		t.Fatal("expected hello not to be recorded as installed after a failing post_install")
	}
	if _, err := os.Stat(filepath.Join(rootDir, "usr", "bin", "hello")); !os.IsNotExist(err) {
		t.Fatalf("expected copied file to be rolled back, stat error: %v", err)
	}
}

func TestInstallReplacesRenamedPackage(t *testing.T) {
	in, st, _ := setupTestInstaller(t)
	ctx := context.Background()

	old := buildArchive(t, archive.PkgInfo{Name: "old-name", Version: "1.0.0", Release: 1, Arch: "x86_64"},
		archive.InstallScripts{}, map[string]string{"usr/bin/tool": "x"})
	if err := in.Install(ctx, old, InstallOptions{}); err != nil {
		t.Fatalf("Install(old-name) error: %v", err)
	}

	renamed := buildArchive(t, archive.PkgInfo{
		Name: "new-name", Version: "1.0.0", Release: 1, Arch: "x86_64",
		Replaces: []string{"old-name"},
	}, archive.InstallScripts{}, map[string]string{"usr/bin/tool": "y"})
	if err := in.Install(ctx, renamed, InstallOptions{}); err != nil {
		t.Fatalf("Install(new-name) error: %v", err)
	}

	if _, ok, _ := st.LookupByName(ctx, "old-name"); ok {
		t.Fatal("expected old-name to have been removed")
	}
	if _, ok, _ := st.LookupByName(ctx, "new-name"); !ok {
		t.Fatal("expected new-name to be installed")
	}
}
