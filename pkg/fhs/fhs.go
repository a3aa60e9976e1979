// Package fhs validates that a package's staging directory only places
// files under Filesystem Hierarchy Standard paths for a merged-usr
// layout, before the builder is allowed to archive it.
package fhs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wright-pm/wright/pkg/werr"
)

// Table is the set of allowed install prefixes plus the hints shown when
// a path is rejected. It is injected rather than hard-coded (spec's
// policy table is distribution-specific) but DefaultTable reproduces the
// original implementation's whitelist exactly.
type Table struct {
	// UsrSubdirs are the subdirectories of /usr that are allowed, e.g.
	// "bin" admits /usr/bin/*.
	UsrSubdirs map[string]bool
	// TopLevel are top-level directories that are allowed unconditionally,
	// e.g. "etc" admits /etc/*.
	TopLevel map[string]bool
	// Hints maps a rejected first path component to a remediation
	// message. usrHints further maps a rejected /usr/<second> component.
	Hints    map[string]string
	UsrHints map[string]string
	Fallback string
}

// DefaultTable is the allowed-prefix whitelist for Wright's merged-usr
// layout: /usr/{bin,lib,lib64,share,include,libexec,libdata}, plus
// unconditionally /etc, /var, /opt, /boot.
func DefaultTable() Table {
	return Table{
		UsrSubdirs: map[string]bool{
			"bin": true, "lib": true, "lib64": true, "share": true,
			"include": true, "libexec": true, "libdata": true,
		},
		TopLevel: map[string]bool{
			"etc": true, "var": true, "opt": true, "boot": true,
		},
		Hints: map[string]string{
			"bin":  "install to /usr/bin",
			"sbin": "install to /usr/bin",
			"lib":  "install to /usr/lib",
			"lib64": "install to /usr/lib or /usr/lib64",
			"home": "user data, not for package files",
			"root": "user data, not for package files",
			"tmp":  "runtime-only; create via install scripts",
			"run":  "runtime-only; create via install scripts",
		},
		UsrHints: map[string]string{
			"sbin":  "install to /usr/bin",
			"local": "packages install to /usr directly, not /usr/local",
		},
		Fallback: "not an FHS-compliant path",
	}
}

func splitAbs(path string) []string {
	clean := filepath.Clean("/" + strings.TrimPrefix(path, "/"))
	parts := strings.Split(clean, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsAllowed reports whether absPath (an absolute path rooted at `/`) is
// under an allowed install prefix.
func (t Table) IsAllowed(absPath string) bool {
	parts := splitAbs(absPath)
	if len(parts) == 0 {
		return false
	}
	if parts[0] == "usr" {
		if len(parts) < 2 {
			return false
		}
		return t.UsrSubdirs[parts[1]]
	}
	return t.TopLevel[parts[0]]
}

// RejectionHint explains why absPath was rejected and what the correct
// destination is.
func (t Table) RejectionHint(absPath string) string {
	parts := splitAbs(absPath)
	if len(parts) == 0 {
		return t.Fallback
	}
	first := parts[0]
	if first == "usr" {
		if len(parts) >= 2 {
			if hint, ok := t.UsrHints[parts[1]]; ok {
				return hint
			}
		}
		return t.Fallback
	}
	if hint, ok := t.Hints[first]; ok {
		return hint
	}
	return t.Fallback
}

// Validate walks pkgDir and checks every regular file and symlink
// against table, using pkgName only to annotate error messages. Absolute
// symlink targets are also checked; relative targets are not (they
// resolve relative to wherever the package ends up installed).
func Validate(pkgDir, pkgName string, table Table) error {
	return filepath.WalkDir(pkgDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return werr.New(werr.KindBuild, fmt.Sprintf("failed to walk package directory %s", pkgDir), err)
		}
		rel, err := filepath.Rel(pkgDir, path)
		if err != nil {
			return err
		}
		if rel == "." || d.IsDir() {
			return nil
		}
		abs := "/" + rel

		if !table.IsAllowed(abs) {
			hint := table.RejectionHint(abs)
			return werr.New(werr.KindValidation,
				fmt.Sprintf("file '%s' violates FHS — %s", abs, hint), nil).WithPackage(pkgName)
		}

		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err == nil && filepath.IsAbs(target) && !table.IsAllowed(target) {
				hint := table.RejectionHint(target)
				return werr.New(werr.KindValidation,
					fmt.Sprintf("symlink '%s' points to '%s' which violates FHS — %s", abs, target, hint), nil).
					WithPackage(pkgName)
			}
		}
		return nil
	})
}
