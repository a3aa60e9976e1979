package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func buildFixturePkgDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "usr", "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "usr", "bin", "hello"), []byte("#!/bin/sh\necho hi\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("hello", filepath.Join(dir, "usr", "bin", "hello-link")); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestCreateAndExtractRoundTrip(t *testing.T) {
	pkgDir := buildFixturePkgDir(t)
	archivePath := filepath.Join(t.TempDir(), "hello-1.0.0-1-x86_64.wright.tar.zst")

	opts := BuildOptions{
		Info: PkgInfo{
			Name:        "hello",
			Version:     "1.0.0",
			Release:     1,
			Description: "hello world",
			Arch:        "x86_64",
			License:     "MIT",
			RuntimeDeps: []string{"glibc"},
		},
		Install: InstallScripts{PostInstall: "echo installed"},
	}
	if err := Create(pkgDir, archivePath, opts); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	destDir := t.TempDir()
	info, install, err := Extract(archivePath, destDir)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if info.Name != "hello" || info.Version != "1.0.0" {
		t.Fatalf("unexpected PkgInfo: %+v", info)
	}
	if len(info.RuntimeDeps) != 1 || info.RuntimeDeps[0] != "glibc" {
		t.Fatalf("unexpected runtime deps: %v", info.RuntimeDeps)
	}
	if info.InstallSize <= 0 {
		t.Fatalf("expected non-zero install size, got %d", info.InstallSize)
	}
	if install.PostInstall != "echo installed" {
		t.Fatalf("unexpected install scripts: %+v", install)
	}

	data, err := os.ReadFile(filepath.Join(destDir, "usr", "bin", "hello"))
	if err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if !strings.Contains(string(data), "echo hi") {
		t.Fatalf("unexpected extracted content: %q", data)
	}

	target, err := os.Readlink(filepath.Join(destDir, "usr", "bin", "hello-link"))
	if err != nil {
		t.Fatalf("extracted symlink missing: %v", err)
	}
	if target != "hello" {
		t.Fatalf("unexpected symlink target: %q", target)
	}
}

func TestReadPkgInfoWithoutFullExtract(t *testing.T) {
	pkgDir := buildFixturePkgDir(t)
	archivePath := filepath.Join(t.TempDir(), "hello.wright.tar.zst")
	opts := BuildOptions{Info: PkgInfo{Name: "hello", Version: "1.0.0", Release: 1, Arch: "x86_64"}}
	if err := Create(pkgDir, archivePath, opts); err != nil {
		t.Fatal(err)
	}

	info, err := ReadPkgInfo(archivePath)
	if err != nil {
		t.Fatalf("ReadPkgInfo() error: %v", err)
	}
	if info.Name != "hello" {
		t.Fatalf("unexpected name: %q", info.Name)
	}
}

func TestInstallScriptsRoundTrip(t *testing.T) {
	s := InstallScripts{PostInstall: "echo a", PostUpgrade: "echo b", PreRemove: "echo c"}
	data := RenderInstall(s)
	if data == nil {
		t.Fatal("expected non-nil rendered install script")
	}
	got := ParseInstall(data)
	if got != s {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, s)
	}
}

func TestRenderInstallEmptyIsNil(t *testing.T) {
	if RenderInstall(InstallScripts{}) != nil {
		t.Fatal("expected nil for an InstallScripts with no set scripts")
	}
}

func TestArchiveFilename(t *testing.T) {
	got := ArchiveFilename("hello", "1.0.0", 2, "x86_64")
	want := "hello-1.0.0-2-x86_64.wright.tar.zst"
	if got != want {
		t.Fatalf("ArchiveFilename() = %q, want %q", got, want)
	}
}
