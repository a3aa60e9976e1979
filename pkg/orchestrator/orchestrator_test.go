package orchestrator

import (
	"context"
	"os"
	"testing"

	"github.com/wright-pm/wright/pkg/builder"
	"github.com/wright-pm/wright/pkg/plan"
	"github.com/wright-pm/wright/pkg/wconfig"
)

func testConfig(t *testing.T, cacheDir, buildDir string) *wconfig.Config {
	t.Helper()
	return &wconfig.Config{
		General: wconfig.General{CacheDir: cacheDir},
		Build:   wconfig.Build{BuildDir: buildDir, Dockyards: 2},
		Network: wconfig.Network{DownloadTimeoutSecs: 5},
	}
}

func TestRunBuildsIndependentPlansAndLibFirst(t *testing.T) {
	holdDir := t.TempDir()
	writePlanFile(t, holdDir, "lib", `
name = "lib"
version = "1.0"
release = 1
arch = "x86_64"
description = "a library"
license = "MIT"

[stages.package]
executor = "shell"
script = "mkdir -p ${PKG_DIR}/usr/lib && printf lib > ${PKG_DIR}/usr/lib/libfoo.so"
`)
	writePlanFile(t, holdDir, "app", `
name = "app"
version = "1.0"
release = 1
arch = "x86_64"
description = "an app"
license = "MIT"

[dependencies]
build = ["lib"]

[stages.package]
executor = "shell"
script = "mkdir -p ${PKG_DIR}/usr/bin && printf app > ${PKG_DIR}/usr/bin/app"
`)
	cache, err := loadCacheForTest(t, holdDir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	cfg := testConfig(t, t.TempDir(), t.TempDir())
	bld, err := builder.New(cfg)
	if err != nil {
		t.Fatalf("builder.New() error: %v", err)
	}

	o := New(cfg, cache, nil, bld, nil)
	result, err := o.Run(context.Background(), BuildOptions{Targets: []string{"app"}, Quiet: true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(result.Plan) != 2 {
		t.Fatalf("expected 2 scheduled jobs, got %d: %v", len(result.Plan), result.Plan)
	}
	if result.Plan[0].Plan.Name != "lib" {
		t.Fatalf("expected lib to schedule before app, got %+v", result.Plan)
	}

	libReport, ok := result.Reports["lib#full"]
	if !ok || libReport.ArchivePath == "" {
		t.Fatal("expected a packaged archive report for lib")
	}
	appReport, ok := result.Reports["app#full"]
	if !ok || appReport.ArchivePath == "" {
		t.Fatal("expected a packaged archive report for app")
	}
	if _, err := os.Stat(libReport.ArchivePath); err != nil {
		t.Fatalf("expected lib archive on disk: %v", err)
	}
	if _, err := os.Stat(appReport.ArchivePath); err != nil {
		t.Fatalf("expected app archive on disk: %v", err)
	}
}

func TestRunLintStopsBeforeBuilding(t *testing.T) {
	holdDir := t.TempDir()
	writePlanFile(t, holdDir, "app", `
name = "app"
version = "1.0"
release = 1
arch = "x86_64"
description = "an app"
license = "MIT"
`)
	cache, err := loadCacheForTest(t, holdDir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	cfg := testConfig(t, t.TempDir(), t.TempDir())
	bld, err := builder.New(cfg)
	if err != nil {
		t.Fatalf("builder.New() error: %v", err)
	}

	o := New(cfg, cache, nil, bld, nil)
	result, err := o.Run(context.Background(), BuildOptions{Targets: []string{"app"}, Lint: true, Quiet: true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.Reports != nil {
		t.Fatal("expected --lint to skip execution entirely")
	}
}

func loadCacheForTest(t *testing.T, holdDir string) (*plan.Cache, error) {
	t.Helper()
	c, err := plan.Load(holdDir)
	return c, err
}
