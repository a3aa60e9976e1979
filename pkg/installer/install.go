package installer

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/wright-pm/wright/pkg/archive"
	"github.com/wright-pm/wright/pkg/store"
	"github.com/wright-pm/wright/pkg/version"
	"github.com/wright-pm/wright/pkg/werr"
)

// InstallOptions mirrors the force/nodeps knobs original_source's
// install_packages exposes per archive.
type InstallOptions struct {
	// Force skips the conflicts check and allows overwriting files
	// already owned by another package, recording the overlap as a shadow
	// instead of failing. Packages named in pkginfo.replaces are removed
	// whether or not Force is set.
	Force bool
	// SkipDeps skips the runtime/link dependency presence and version
	// constraint check. The orchestrator already builds in dependency
	// order, so it sets this; a standalone archive install from the CLI
	// normally leaves it false.
	SkipDeps bool
}

// Install installs one .wright.tar.zst archive onto cfg.RootDir,
// recording its package row, file manifest, and dependency edges in the
// store. Every filesystem change is journaled so a crash partway
// through is undone by Recover at the next startup.
func (in *Installer) Install(ctx context.Context, archivePath string, opts InstallOptions) error {
	tempDir, err := os.MkdirTemp("", "wright-install-*")
	if err != nil {
		return werr.New(werr.KindTransaction, "failed to create extraction directory", err)
	}
	defer os.RemoveAll(tempDir)

	info, install, err := archive.Extract(archivePath, tempDir)
	if err != nil {
		return err
	}

	for _, replaced := range info.Replaces {
		if _, ok, err := in.st.LookupByName(ctx, replaced); err != nil {
			return err
		} else if ok {
			if err := in.Remove(ctx, replaced, RemoveOptions{Force: true}); err != nil {
				return werr.New(werr.KindTransaction, "failed to remove replaced package "+replaced, err).WithPackage(info.Name)
			}
		}
	}

	if !opts.Force {
		for _, conflict := range info.Conflicts {
			if _, ok, err := in.st.LookupByName(ctx, conflict); err != nil {
				return err
			} else if ok {
				return werr.New(werr.KindConflict,
					fmt.Sprintf("package conflict: %q conflicts with installed package %q; remove it first or use --force", info.Name, conflict), nil).
					WithPackage(info.Name)
			}
		}
	}

	if _, ok, err := in.st.LookupByName(ctx, info.Name); err != nil {
		return err
	} else if ok {
		if opts.Force {
			return in.Upgrade(ctx, archivePath, UpgradeOptions{Force: true})
		}
		return werr.New(werr.KindConflict, fmt.Sprintf("package %q is already installed", info.Name), nil).WithPackage(info.Name)
	}

	if !opts.SkipDeps {
		if err := in.checkDependencies(ctx, info); err != nil {
			return err
		}
	}

	files, err := collectFileEntries(tempDir, info.BackupFiles)
	if err != nil {
		return err
	}

	type pendingShadow struct {
		path       string
		owner      string
		backupPath string
	}
	var shadows []pendingShadow
	for _, f := range files {
		if f.Kind != store.FileRegular && f.Kind != store.FileSymlink {
			continue
		}
		owner, ok, err := in.st.OwnerOfPath(ctx, f.Path)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if !opts.Force {
			return werr.New(werr.KindConflict, fmt.Sprintf("file %q is already owned by installed package %q", f.Path, owner), nil).WithPackage(info.Name)
		}
		if owner == info.Name {
			shadows = append(shadows, pendingShadow{path: f.Path, owner: owner})
			continue
		}
		// The overwrite is about to discard owner's bytes; save a durable
		// copy now, before copyFilesToRoot touches the file, so a later
		// removal of this package can restore them to owner.
		backup, err := backupShadowedFile(in.cfg.BackupDir, in.cfg.RootDir, f.Path)
		if err != nil {
			return err
		}
		shadows = append(shadows, pendingShadow{path: f.Path, owner: owner, backupPath: backup})
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
		Operation:   store.OpInstall,
		PackageName: info.Name,
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

	if err := copyFilesToRoot(tempDir, in.cfg.RootDir, sess, opts.Force); err != nil {
		_ = sess.rollback()
		_ = in.st.MarkRolledBack(ctx, txnID)
		return err
	}

	// post_install runs with the new files already in place but before the
	// package is recorded as installed, so a non-zero exit aborts the
	// install and rolls the copied files back instead of leaving a
	// package recorded whose hook never succeeded.
	if err := runInstallScript(ctx, install.PostInstall, in.cfg.RootDir, info.Name); err != nil {
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
	if err := store.ReplaceAssumedOnInstall(ctx, commitTx, info.Name); err != nil {
		_ = commitTx.Rollback()
		_ = sess.rollback()
		_ = in.st.MarkRolledBack(ctx, txnID)
		return err
	}
	_, err = store.InsertPackage(ctx, commitTx, &store.Package{
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
	}, files, dependencyRows(info), info.Provides)
	if err != nil {
		_ = commitTx.Rollback()
		_ = sess.rollback()
		_ = in.st.MarkRolledBack(ctx, txnID)
		return err
	}
	for _, sh := range shadows {
		if sh.owner == info.Name {
			continue
		}
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
		return werr.New(werr.KindDatabase, "failed to commit package install", err).WithPackage(info.Name)
	}

	sess.commit()
	return nil
}

// checkDependencies verifies every runtime and link dependency the
// archive declares is either installed at a satisfying version or
// provided by an installed package's provides list.
func (in *Installer) checkDependencies(ctx context.Context, info archive.PkgInfo) error {
	all := make([]string, 0, len(info.RuntimeDeps)+len(info.LinkDeps))
	all = append(all, info.RuntimeDeps...)
	all = append(all, info.LinkDeps...)

	for _, raw := range all {
		name, constraint, err := version.ParseDependency(raw)
		if err != nil {
			name, constraint = raw, nil
		}

		installedVersion := ""
		installed, ok, err := in.st.LookupByName(ctx, name)
		if err != nil {
			return err
		}
		if ok {
			installedVersion = installed.Version
		} else if assumed, aok, aerr := in.st.LookupAssumed(ctx, name); aerr == nil && aok {
			installedVersion = assumed.Version
		} else if provider, pok, perr := in.st.ProviderOf(ctx, name); perr == nil && pok {
			_ = provider
			continue
		} else {
			return werr.New(werr.KindDependency, fmt.Sprintf("missing dependency: %s", raw), nil).WithPackage(info.Name)
		}
		if constraint != nil {
			installedVer, err := version.Parse(installedVersion)
			if err != nil {
				return werr.New(werr.KindDependency, "failed to parse installed version of "+name, err).WithPackage(info.Name)
			}
			if !constraint.Satisfies(installedVer) {
				return werr.New(werr.KindDependency,
					fmt.Sprintf("installed %s %s does not satisfy constraint %s", name, installedVersion, constraint), nil).
					WithPackage(info.Name)
			}
		}
	}
	return nil
}

// dependencyRows converts an archive's flat runtime/link dependency spec
// strings into store.Dependency rows.
func dependencyRows(info archive.PkgInfo) []store.Dependency {
	var out []store.Dependency
	for _, raw := range info.RuntimeDeps {
		name, constraint, err := version.ParseDependency(raw)
		if err != nil {
			name, constraint = raw, nil
		}
		d := store.Dependency{DependsOn: name, Kind: store.DepRuntime}
		if constraint != nil {
			d.VersionConstraint = constraint.String()
		}
		out = append(out, d)
	}
	for _, raw := range info.LinkDeps {
		name, constraint, err := version.ParseDependency(raw)
		if err != nil {
			name, constraint = raw, nil
		}
		d := store.Dependency{DependsOn: name, Kind: store.DepLink}
		if constraint != nil {
			d.VersionConstraint = constraint.String()
		}
		out = append(out, d)
	}
	return out
}
