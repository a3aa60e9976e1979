package builder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/wright-pm/wright/pkg/plan"
	"github.com/wright-pm/wright/pkg/version"
	"github.com/wright-pm/wright/pkg/wconfig"
	"github.com/wright-pm/wright/pkg/werr"
)

func testPlan(t *testing.T, dir string) *plan.Plan {
	t.Helper()
	v, err := version.Parse("1.0")
	if err != nil {
		t.Fatal(err)
	}
	return &plan.Plan{Name: "hello", Version: v, Release: 1, Arch: "x86_64", Dir: dir}
}

func testBuilder(t *testing.T, cacheDir, buildDir string) *Builder {
	t.Helper()
	cfg := &wconfig.Config{
		General: wconfig.General{CacheDir: cacheDir},
		Build:   wconfig.Build{BuildDir: buildDir},
		Network: wconfig.Network{DownloadTimeoutSecs: 5},
	}
	b, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return b
}

func TestSanitizeCacheFilename(t *testing.T) {
	cases := map[string]string{
		"foo.tar.gz":        "foo.tar.gz",
		"../../etc/passwd":  "passwd",
		"a/b\\c":            "c",
		"":                  "download",
		".":                 "download",
	}
	for in, want := range cases {
		if got := sanitizeCacheFilename(in); got != want {
			t.Errorf("sanitizeCacheFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsRemoteURI(t *testing.T) {
	if !isRemoteURI("https://example.org/foo.tar.gz") {
		t.Fatal("expected https to be remote")
	}
	if isRemoteURI("./local/foo.tar.gz") {
		t.Fatal("expected relative path to not be remote")
	}
}

func TestFetchCopiesLocalSource(t *testing.T) {
	holdDir := t.TempDir()
	cacheDir := t.TempDir()
	buildDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(holdDir, "patch.diff"), []byte("diff content"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := testPlan(t, holdDir)
	p.Sources = []plan.Source{{URI: "patch.diff", SHA256: "SKIP"}}

	b := testBuilder(t, cacheDir, buildDir)
	if err := b.Fetch(context.Background(), p, holdDir); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cacheDir, "sources", "patch.diff"))
	if err != nil {
		t.Fatalf("expected cached copy of local source: %v", err)
	}
	if string(data) != "diff content" {
		t.Fatalf("unexpected cached content: %q", data)
	}
}

func TestFetchRejectsPathEscape(t *testing.T) {
	holdDir := t.TempDir()
	cacheDir := t.TempDir()
	buildDir := t.TempDir()

	p := testPlan(t, holdDir)
	p.Sources = []plan.Source{{URI: "../../../etc/passwd", SHA256: "SKIP"}}

	b := testBuilder(t, cacheDir, buildDir)
	err := b.Fetch(context.Background(), p, holdDir)
	if err == nil {
		t.Fatal("expected error for source escaping plan directory")
	}
	if !werr.Is(err, werr.KindValidation) {
		t.Fatalf("expected KindValidation, got %v", err)
	}
}

func TestVerifySkipsSkipSources(t *testing.T) {
	cacheDir := t.TempDir()
	buildDir := t.TempDir()
	p := testPlan(t, t.TempDir())
	p.Sources = []plan.Source{{URI: "missing.tar.gz", SHA256: "SKIP"}}

	b := testBuilder(t, cacheDir, buildDir)
	if err := b.Verify(p); err != nil {
		t.Fatalf("Verify() error for SKIP source: %v", err)
	}
}

func TestVerifyDetectsMismatch(t *testing.T) {
	cacheDir := t.TempDir()
	buildDir := t.TempDir()
	p := testPlan(t, t.TempDir())
	p.Sources = []plan.Source{{URI: "foo.tar.gz", SHA256: "deadbeef"}}

	sourcesDir := filepath.Join(cacheDir, "sources")
	if err := os.MkdirAll(sourcesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sourcesDir, "foo.tar.gz"), []byte("not the right bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := testBuilder(t, cacheDir, buildDir)
	err := b.Verify(p)
	if err == nil {
		t.Fatal("expected checksum mismatch error")
	}
	if !werr.Is(err, werr.KindChecksum) {
		t.Fatalf("expected KindChecksum, got %v", err)
	}
}
