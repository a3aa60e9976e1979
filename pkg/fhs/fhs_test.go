package fhs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wright-pm/wright/pkg/werr"
)

func makeFile(t *testing.T, dir, rel string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte("test"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func makeSymlink(t *testing.T, dir, rel, target string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, full); err != nil {
		t.Fatal(err)
	}
}

func TestAllowedPrefixes(t *testing.T) {
	table := DefaultTable()
	cases := []string{
		"usr/bin/hello",
		"usr/lib/libfoo.so.1",
		"usr/lib64/libbar.so",
		"usr/share/doc/hello/README",
		"etc/nginx/nginx.conf",
		"var/lib/foo/data",
	}
	for _, rel := range cases {
		dir := t.TempDir()
		makeFile(t, dir, rel)
		if err := Validate(dir, "pkg", table); err != nil {
			t.Errorf("Validate(%q) unexpected error: %v", rel, err)
		}
	}
}

func TestRejectedPrefixes(t *testing.T) {
	table := DefaultTable()
	cases := []struct {
		rel  string
		hint string
	}{
		{"bin/foo", "install to /usr/bin"},
		{"sbin/foo", "install to /usr/bin"},
		{"usr/sbin/foo", "install to /usr/bin"},
		{"lib/libfoo.so", "install to /usr/lib"},
		{"lib64/libfoo.so", "install to /usr/lib"},
		{"usr/local/bin/foo", "not /usr/local"},
		{"home/user/file", "user data"},
		{"tmp/foo", "runtime-only"},
		{"run/foo.pid", "runtime-only"},
		{"mnt/foo/bar", "not an FHS-compliant path"},
	}
	for _, c := range cases {
		dir := t.TempDir()
		makeFile(t, dir, c.rel)
		err := Validate(dir, "pkg", table)
		if err == nil {
			t.Errorf("Validate(%q) expected error, got none", c.rel)
			continue
		}
		if !werr.Is(err, werr.KindValidation) {
			t.Errorf("Validate(%q) expected KindValidation, got %v", c.rel, err)
		}
		if !contains(err.Error(), c.hint) {
			t.Errorf("Validate(%q) error %q missing hint %q", c.rel, err.Error(), c.hint)
		}
	}
}

func TestSymlinkTargets(t *testing.T) {
	table := DefaultTable()

	dir := t.TempDir()
	makeSymlink(t, dir, "usr/lib/libfoo.so", "/lib/libfoo.so.1")
	if err := Validate(dir, "pkg", table); err == nil {
		t.Error("expected rejection for absolute symlink target outside whitelist")
	}

	dir = t.TempDir()
	makeSymlink(t, dir, "usr/lib/libfoo.so", "libfoo.so.1")
	if err := Validate(dir, "pkg", table); err != nil {
		t.Errorf("relative symlink targets should not be checked, got: %v", err)
	}

	dir = t.TempDir()
	makeSymlink(t, dir, "usr/lib/libfoo.so", "/usr/lib/libfoo.so.1")
	if err := Validate(dir, "pkg", table); err != nil {
		t.Errorf("allowed absolute symlink target should pass, got: %v", err)
	}
}

func TestEmptyAndMixed(t *testing.T) {
	table := DefaultTable()

	dir := t.TempDir()
	if err := Validate(dir, "empty", table); err != nil {
		t.Errorf("empty package directory should validate, got: %v", err)
	}

	dir = t.TempDir()
	makeFile(t, dir, "usr/bin/good")
	makeFile(t, dir, "bin/bad")
	if err := Validate(dir, "mixed", table); err == nil {
		t.Error("expected failure due to the bad file")
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
