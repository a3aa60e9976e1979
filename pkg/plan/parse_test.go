package plan

import "testing"

const helloPlan = `
name = "hello"
version = "1.0.0"
release = 1
arch = "x86_64"
description = "a trivial package"
license = "MIT"

[[sources]]
uri = "https://example.org/hello-1.0.0.tar.gz"
sha256 = "abc123"

[stages.compile]
executor = "bash"
level = "relaxed"
script = "gcc -o hello hello.c"

[stages.package]
executor = "bash"
script = "install -Dm755 hello ${PKG_DIR}/usr/bin/hello"
`

func TestParseHelloPlan(t *testing.T) {
	p, err := Parse([]byte(helloPlan), "/holds/hello")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if p.Name != "hello" || p.Version.String() != "1.0.0" || p.Release != 1 {
		t.Fatalf("unexpected plan identity: %+v", p)
	}
	if len(p.Sources) != 1 || p.Sources[0].SHA256 != "abc123" {
		t.Fatalf("unexpected sources: %+v", p.Sources)
	}
	compile, ok := p.Stages["compile"]
	if !ok || compile.Level != LevelRelaxed {
		t.Fatalf("expected compile stage at relaxed level, got %+v", compile)
	}
}

func TestParseRejectsMismatchedSourceCounts(t *testing.T) {
	bad := helloPlan + "\n[[sources]]\nuri = \"https://example.org/extra\"\n"
	// sha256 missing on the second source entry should fail struct validation.
	if _, err := Parse([]byte(bad), "/holds/hello"); err == nil {
		t.Fatal("expected validation error for source missing sha256")
	}
}

func TestParseRejectsUnknownBuildType(t *testing.T) {
	bad := helloPlan + "\n[options]\nbuild_type = \"nonsense\"\n"
	if _, err := Parse([]byte(bad), "/holds/hello"); err == nil {
		t.Fatal("expected error for unknown build_type")
	}
}

func TestParseRejectsEmptyStageScript(t *testing.T) {
	bad := `
name = "bad"
version = "1.0.0"
release = 1
arch = "x86_64"
description = "d"
license = "MIT"

[stages.compile]
executor = "bash"
script = ""
`
	if _, err := Parse([]byte(bad), "/holds/bad"); err == nil {
		t.Fatal("expected error for empty stage script")
	}
}

func TestMVPOverlayMerge(t *testing.T) {
	withMVP := helloPlan + `
[mvp.lifecycle.compile]
executor = "bash"
script = "gcc -o hello hello.c -DBOOTSTRAP"

[mvp.dependencies]
link = []
`
	p, err := Parse([]byte(withMVP), "/holds/hello")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	full := p.EffectiveStages(PhaseFull)
	mvp := p.EffectiveStages(PhaseMVP)
	if full["compile"].Script == mvp["compile"].Script {
		t.Fatal("expected mvp lifecycle overlay to replace the compile stage script")
	}
	if mvp["package"].Script != full["package"].Script {
		t.Fatal("expected stages absent from the overlay to fall back to the main lifecycle")
	}
}

func TestSubstitute(t *testing.T) {
	vars := map[string]string{"PKG_DIR": "/output", "PKG_NAME": "hello"}
	got := Substitute("install ${PKG_NAME} into ${PKG_DIR} (${UNKNOWN})", vars)
	want := "install hello into /output (${UNKNOWN})"
	if got != want {
		t.Fatalf("Substitute() = %q, want %q", got, want)
	}
}

func TestSplitNameCollisionRejected(t *testing.T) {
	bad := helloPlan + `
[split.hello]
description = "colliding split"
[split.hello.package]
executor = "bash"
script = "true"
`
	if _, err := Parse([]byte(bad), "/holds/hello"); err == nil {
		t.Fatal("expected error for split name colliding with main package name")
	}
}
