package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/wright-pm/wright/pkg/archive"
	"github.com/wright-pm/wright/pkg/store"
)

func setupTestInstaller(t *testing.T) (*Installer, *store.Store, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "packages.db")
	st, err := store.Open(context.Background(), store.Config{Path: dbPath})
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	rootDir := t.TempDir()
	backupDir := t.TempDir()
	in, err := New(st, Config{RootDir: rootDir, BackupDir: backupDir})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return in, st, rootDir
}

// buildArchive packs a single regular file into a .wright.tar.zst under
// t.TempDir(), returning its path.
func buildArchive(t *testing.T, info archive.PkgInfo, install archive.InstallScripts, files map[string]string) string {
	t.Helper()
	pkgDir := t.TempDir()
	for path, content := range files {
		full := filepath.Join(pkgDir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	archivePath := filepath.Join(t.TempDir(), info.Name+".wright.tar.zst")
	if err := archive.Create(pkgDir, archivePath, archive.BuildOptions{Info: info, Install: install}); err != nil {
		t.Fatalf("archive.Create() error: %v", err)
	}
	return archivePath
}
