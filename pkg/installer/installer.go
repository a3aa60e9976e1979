// Package installer implements Wright's transactional installer: install,
// upgrade, remove, assume/unassume, and doctor, each backed by a journal
// entry in pkg/store so a crash mid-mutation can be recovered at the next
// startup. Every filesystem change a mutation makes is recorded on an undo
// stack for same-process rollback and mirrored to an on-disk action log
// under Config.BackupDir for crash recovery, since a process crash loses
// the in-memory stack but not the file it wrote to disk.
package installer

import (
	"context"
	"os"
	"runtime"

	"github.com/wright-pm/wright/pkg/store"
	"github.com/wright-pm/wright/pkg/werr"
)

// Config configures where an Installer operates.
type Config struct {
	// RootDir is the live filesystem root packages are installed onto.
	// Tests point this at a scratch directory; a real wright run points
	// it at "/".
	RootDir string
	// BackupDir holds each in-flight transaction's backup copies and
	// action log, named by transaction UUID. It must persist across a
	// crash, so it should not live under a tmpfs that a reboot clears.
	BackupDir string
}

// Installer is the package database's sole writer for installed-package
// state: every mutation funnels through Install, Upgrade, or Remove, each
// wrapped in a journal entry.
type Installer struct {
	st  *store.Store
	cfg Config
}

// New constructs an Installer, creating BackupDir if it does not exist.
func New(st *store.Store, cfg Config) (*Installer, error) {
	if cfg.RootDir == "" {
		return nil, werr.New(werr.KindValidation, "installer root directory is required", nil)
	}
	if cfg.BackupDir == "" {
		return nil, werr.New(werr.KindValidation, "installer backup directory is required", nil)
	}
	if err := os.MkdirAll(cfg.BackupDir, 0o755); err != nil {
		return nil, werr.New(werr.KindValidation, "failed to create installer backup directory", err)
	}
	return &Installer{st: st, cfg: cfg}, nil
}

// InstallArchive satisfies pkg/orchestrator's Installer interface: a
// plain install with no force flag, used for newly-built packages that
// cannot already be installed under a conflicting version.
func (in *Installer) InstallArchive(ctx context.Context, archivePath string) error {
	return in.Install(ctx, archivePath, InstallOptions{})
}

// hostArch maps the running binary's GOARCH to Wright's archive naming
// convention.
func hostArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	default:
		return runtime.GOARCH
	}
}
