package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/wright-pm/wright/pkg/archive"
	"github.com/wright-pm/wright/pkg/store"
	"github.com/wright-pm/wright/pkg/version"
	"github.com/wright-pm/wright/pkg/werr"
)

// UpgradeOptions mirrors upgrade_package's force flag: bypass the
// new-version-must-exceed-old check and file-ownership conflicts.
type UpgradeOptions struct {
	Force bool
}

// Upgrade replaces an installed package's files and database record with
// the contents of a newer archive, preserving config files and any file
// still claimed by another installed package.
func (in *Installer) Upgrade(ctx context.Context, archivePath string, opts UpgradeOptions) error {
	tempDir, err := os.MkdirTemp("", "wright-upgrade-*")
	if err != nil {
		return werr.New(werr.KindTransaction, "failed to create extraction directory", err)
	}
	defer os.RemoveAll(tempDir)

	info, install, err := archive.Extract(archivePath, tempDir)
	if err != nil {
		return err
	}

	oldPkg, ok, err := in.st.LookupByName(ctx, info.Name)
	if err != nil {
		return err
	}
	if !ok {
		return werr.New(werr.KindValidation, fmt.Sprintf("package %q is not installed, use install instead", info.Name), nil).WithPackage(info.Name)
	}

	if !opts.Force {
		oldVer, err := version.Parse(oldPkg.Version)
		if err != nil {
			return werr.New(werr.KindValidation, "failed to parse installed version", err).WithPackage(info.Name)
		}
		newVer, err := version.Parse(info.Version)
		if err != nil {
			return werr.New(werr.KindValidation, "failed to parse archive version", err).WithPackage(info.Name)
		}
		if newVer.Less(oldVer) || (newVer.Equal(oldVer) && info.Release <= oldPkg.Release) {
			return werr.New(werr.KindValidation,
				fmt.Sprintf("%s %s-%d is not newer than installed %s-%d", info.Name, info.Version, info.Release, oldPkg.Version, oldPkg.Release), nil).
				WithPackage(info.Name)
		}
	}

	oldFiles, err := in.st.FilesOf(ctx, info.Name)
	if err != nil {
		return err
	}

	newFiles, err := collectFileEntries(tempDir, info.BackupFiles)
	if err != nil {
		return err
	}
	newPaths := make(map[string]bool, len(newFiles))
	for _, f := range newFiles {
		newPaths[f.Path] = true
	}

	type pendingShadow struct {
		path       string
		owner      string
		backupPath string
	}
	var shadows []pendingShadow
	for _, f := range newFiles {
		if f.Kind != store.FileRegular && f.Kind != store.FileSymlink {
			continue
		}
		owner, ok, err := in.st.OwnerOfPath(ctx, f.Path)
		if err != nil {
			return err
		}
		if !ok || owner == info.Name {
			continue
		}
		if !opts.Force {
			return werr.New(werr.KindConflict, fmt.Sprintf("file %q is already owned by installed package %q", f.Path, owner), nil).WithPackage(info.Name)
		}
		// Same durable-copy-before-overwrite guarantee install.go makes:
		// save owner's bytes now so a later removal of this package can
		// restore them.
		backup, err := backupShadowedFile(in.cfg.BackupDir, in.cfg.RootDir, f.Path)
		if err != nil {
			return err
		}
		shadows = append(shadows, pendingShadow{path: f.Path, owner: owner, backupPath: backup})
	}

	// A backup-listed file already on disk keeps its current content; the
	// archive's copy is written beside it as <path>.wnew instead.
	for _, f := range newFiles {
		if !f.IsConfig {
			continue
		}
		if _, err := os.Lstat(filepath.Join(in.cfg.RootDir, filepath.Clean(f.Path))); err != nil {
			continue
		}
		src := filepath.Join(tempDir, filepath.Clean(f.Path))
		if err := os.Rename(src, src+".wnew"); err != nil {
			return werr.New(werr.KindTransaction, "failed to stage new config file "+f.Path, err).WithPackage(info.Name)
		}
	}

	txnUUID := uuid.NewString()
	sess, err := newSession(in.cfg.BackupDir, txnUUID)
	if err != nil {
		return err
	}

	beginTx, err := in.st.BeginTx(ctx)
	if err != nil {
		return err
	}
	txnID, err := store.BeginJournal(ctx, beginTx, &store.Transaction{
		UUID:        txnUUID,
		Operation:   store.OpUpgrade,
		PackageName: info.Name,
		OldVersion:  oldPkg.Version,
		NewVersion:  info.Version,
		BackupPath:  sess.dir,
	})
	if err != nil {
		_ = beginTx.Rollback()
		return err
	}
	if err := beginTx.Commit(); err != nil {
		return werr.New(werr.KindDatabase, "failed to commit journal entry", err).WithPackage(info.Name)
	}

	if err := copyFilesToRoot(tempDir, in.cfg.RootDir, sess, true); err != nil {
		_ = sess.rollback()
		_ = in.st.MarkRolledBack(ctx, txnID)
		return err
	}

	// Remove files the old package owned that the new version dropped,
	// unless the path is a preserved config file or another installed
	// package still shadows it.
	for i := len(oldFiles) - 1; i >= 0; i-- {
		old := oldFiles[i]
		if newPaths[old.Path] {
			continue
		}
		if old.IsConfig {
			continue
		}
		shadowed, err := in.st.ShadowsOfPath(ctx, old.Path)
		if err == nil && len(shadowed) > 0 {
			continue
		}
		// os.Remove on a non-empty directory fails and is ignored: a
		// directory still holding other packages' files must survive.
		full := filepath.Join(in.cfg.RootDir, filepath.Clean(old.Path))
		_ = os.Remove(full)
	}

	// post_upgrade runs with the new files already in place but before the
	// database record is updated, so a non-zero exit aborts the upgrade
	// and rolls the copied files back instead of recording a package whose
	// hook never succeeded, matching install.go's post_install gating.
	if err := runInstallScript(ctx, install.PostUpgrade, in.cfg.RootDir, info.Name); err != nil {
		_ = sess.rollback()
		_ = in.st.MarkRolledBack(ctx, txnID)
		return err
	}

	archiveHash, _ := sha256File(archivePath)

	commitTx, err := in.st.BeginTx(ctx)
	if err != nil {
		_ = sess.rollback()
		_ = in.st.MarkRolledBack(ctx, txnID)
		return err
	}
	if err := store.DeletePackage(ctx, commitTx, info.Name); err != nil {
		_ = commitTx.Rollback()
		_ = sess.rollback()
		_ = in.st.MarkRolledBack(ctx, txnID)
		return err
	}
	if _, err := store.InsertPackage(ctx, commitTx, &store.Package{
		Name:        info.Name,
		Version:     info.Version,
		Release:     info.Release,
		Arch:        info.Arch,
		Description: info.Description,
		License:     info.License,
		InstallSize: info.InstallSize,
		ArchiveHash: archiveHash,
		PostInstall: install.PostInstall,
		PostUpgrade: install.PostUpgrade,
		PreRemove:   install.PreRemove,
	}, newFiles, dependencyRows(info), info.Provides); err != nil {
		_ = commitTx.Rollback()
		_ = sess.rollback()
		_ = in.st.MarkRolledBack(ctx, txnID)
		return err
	}
	for _, sh := range shadows {
		if err := store.RecordShadow(ctx, commitTx, sh.path, sh.owner, info.Name, sh.backupPath); err != nil {
			_ = commitTx.Rollback()
			_ = sess.rollback()
			_ = in.st.MarkRolledBack(ctx, txnID)
			return err
		}
	}
	if err := store.CompleteJournal(ctx, commitTx, txnID); err != nil {
		_ = commitTx.Rollback()
		_ = sess.rollback()
		_ = in.st.MarkRolledBack(ctx, txnID)
		return err
	}
	if err := commitTx.Commit(); err != nil {
		_ = sess.rollback()
		_ = in.st.MarkRolledBack(ctx, txnID)
		return werr.New(werr.KindDatabase, "failed to commit package upgrade", err).WithPackage(info.Name)
	}

	sess.commit()
	return nil
}
