package builder

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/wright-pm/wright/pkg/plan"
	"github.com/wright-pm/wright/pkg/werr"
)

func writeTestTarGz(t *testing.T, path string, topDir string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	if err := tw.WriteHeader(&tar.Header{Name: topDir + "/", Typeflag: tar.TypeDir, Mode: 0o755}); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		hdr := &tar.Header{Name: topDir + "/" + name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
}

func TestIsArchiveFilename(t *testing.T) {
	for _, name := range []string{"foo.tar.gz", "foo.tgz", "foo.tar.bz2", "foo.tar.zst", "foo.tar.xz"} {
		if !isArchiveFilename(name) {
			t.Errorf("expected %q to be recognized as an archive", name)
		}
	}
	if isArchiveFilename("patch.diff") {
		t.Error("expected patch.diff to not be an archive")
	}
}

func TestExtractArchiveUnsupportedXZ(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "foo.tar.xz")
	if err := os.WriteFile(path, []byte("not really xz"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := extractArchive(path, t.TempDir())
	if err == nil {
		t.Fatal("expected error for .tar.xz")
	}
	if !werr.Is(err, werr.KindBuild) {
		t.Fatalf("expected KindBuild, got %v", err)
	}
}

func TestExtractSingleTopLevelDir(t *testing.T) {
	cacheDir := t.TempDir()
	buildDir := t.TempDir()
	sourcesDir := filepath.Join(cacheDir, "sources")
	if err := os.MkdirAll(sourcesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeTestTarGz(t, filepath.Join(sourcesDir, "hello-1.0.tar.gz"), "hello-1.0", map[string]string{"README": "hi"})

	p := testPlan(t, t.TempDir())
	p.Sources = []plan.Source{{URI: "https://example.org/hello-1.0.tar.gz", SHA256: "SKIP"}}

	b := testBuilder(t, cacheDir, buildDir)
	destDir := t.TempDir()
	filesDir := t.TempDir()
	buildSrcDir, err := b.Extract(p, destDir, filesDir)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if buildSrcDir != filepath.Join(destDir, "hello-1.0") {
		t.Fatalf("unexpected BUILD_DIR: %s", buildSrcDir)
	}
	if _, err := os.Stat(filepath.Join(buildSrcDir, "README")); err != nil {
		t.Fatalf("expected extracted README: %v", err)
	}
}

func TestExtractCopiesNonArchiveIntoFilesDir(t *testing.T) {
	cacheDir := t.TempDir()
	buildDir := t.TempDir()
	sourcesDir := filepath.Join(cacheDir, "sources")
	if err := os.MkdirAll(sourcesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sourcesDir, "patch.diff"), []byte("diff"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := testPlan(t, t.TempDir())
	p.Sources = []plan.Source{{URI: "https://example.org/patch.diff", SHA256: "SKIP"}}

	b := testBuilder(t, cacheDir, buildDir)
	destDir := t.TempDir()
	filesDir := t.TempDir()
	if _, err := b.Extract(p, destDir, filesDir); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filesDir, "patch.diff")); err != nil {
		t.Fatalf("expected patch.diff copied into files dir: %v", err)
	}
}
