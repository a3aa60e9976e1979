package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/wright-pm/wright/pkg/store"
	"github.com/wright-pm/wright/pkg/werr"
)

// RemoveOptions mirrors remove_package's force flag: proceed even when
// other installed packages still depend on the target.
type RemoveOptions struct {
	Force bool
}

// Remove uninstalls a package: its non-config files (unless another
// installed package still owns them through a shadow), then its
// database record.
func (in *Installer) Remove(ctx context.Context, name string, opts RemoveOptions) error {
	pkg, ok, err := in.st.LookupByName(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return werr.New(werr.KindValidation, fmt.Sprintf("package %q is not installed", name), nil).WithPackage(name)
	}

	linkDependents, err := in.st.DependentsOf(ctx, name, store.DepLink)
	if err != nil {
		return err
	}
	allDependents, err := in.st.DependentsOf(ctx, name, "")
	if err != nil {
		return err
	}
	if len(allDependents) > 0 && !opts.Force {
		if len(linkDependents) > 0 {
			return werr.New(werr.KindDependency, fmt.Sprintf(
				"cannot remove %q: it is a link dependency of %s; removing it would break those packages, use --force to override",
				name, strings.Join(linkDependents, ", ")), nil).WithPackage(name)
		}
		return werr.New(werr.KindDependency, fmt.Sprintf("cannot remove %q: required by %s", name, strings.Join(allDependents, ", ")), nil).WithPackage(name)
	}

	// pre_remove failures are non-fatal: removal still proceeds.
	_ = runInstallScript(ctx, pkg.PreRemove, in.cfg.RootDir, name)

	txnUUID := uuid.NewString()
	beginTx, err := in.st.BeginTx(ctx)
	if err != nil {
		return err
	}
	txnID, err := store.BeginJournal(ctx, beginTx, &store.Transaction{
		UUID:        txnUUID,
		Operation:   store.OpRemove,
		PackageName: name,
		OldVersion:  pkg.Version,
	})
	if err != nil {
		_ = beginTx.Rollback()
		return err
	}
	if err := beginTx.Commit(); err != nil {
		return werr.New(werr.KindDatabase, "failed to commit journal entry", err).WithPackage(name)
	}

	files, err := in.st.FilesOf(ctx, name)
	if err != nil {
		_ = in.st.MarkRolledBack(ctx, txnID)
		return err
	}

	var transfers []string
	for i := len(files) - 1; i >= 0; i-- {
		f := files[i]
		if f.IsConfig {
			continue
		}
		shadows, err := in.st.ShadowsOfPath(ctx, f.Path)
		if err != nil {
			continue
		}
		// shadows[0] is the most recent overlap. If another installed
		// package is the current shadower, the on-disk content belongs
		// to it now and must survive this removal.
		if len(shadows) > 0 && shadows[0].ShadowedByPackage != name {
			// name is the original owner of this path but no longer
			// exists after this removal; the current shadower becomes
			// sole owner of record.
			if shadows[0].OwnerPackage == name {
				transfers = append(transfers, f.Path)
			}
			continue
		}
		full := filepath.Join(in.cfg.RootDir, filepath.Clean(f.Path))
		if f.Kind == store.FileDir {
			_ = os.Remove(full)
			continue
		}
		// name is itself the current shadower: its bytes are what is on
		// disk. Restore the original owner's pre-overwrite content from
		// the backup taken at install time rather than deleting outright,
		// so ownership of path reverts cleanly to whoever still has a
		// files row for it once this package's own row cascades away.
		if len(shadows) > 0 && shadows[0].ShadowedByPackage == name && shadows[0].BackupPath != "" {
			if err := copyFile(shadows[0].BackupPath, full); err != nil && !os.IsNotExist(err) {
				_ = in.st.MarkRolledBack(ctx, txnID)
				return werr.New(werr.KindTransaction, "failed to restore shadowed file "+full, err).WithPackage(name)
			}
			_ = os.Remove(shadows[0].BackupPath)
			continue
		}
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			_ = in.st.MarkRolledBack(ctx, txnID)
			return werr.New(werr.KindTransaction, "failed to remove "+full, err).WithPackage(name)
		}
	}

	commitTx, err := in.st.BeginTx(ctx)
	if err != nil {
		_ = in.st.MarkRolledBack(ctx, txnID)
		return err
	}
	if err := store.RemoveShadowsFor(ctx, commitTx, name); err != nil {
		_ = commitTx.Rollback()
		_ = in.st.MarkRolledBack(ctx, txnID)
		return err
	}
	for _, path := range transfers {
		shadows, err := in.st.ShadowsOfPath(ctx, path)
		if err != nil || len(shadows) == 0 {
			continue
		}
		if err := store.TransferShadowOwnership(ctx, commitTx, path, shadows[0].ShadowedByPackage); err != nil {
			_ = commitTx.Rollback()
			_ = in.st.MarkRolledBack(ctx, txnID)
			return err
		}
	}
	if err := store.DeletePackage(ctx, commitTx, name); err != nil {
		_ = commitTx.Rollback()
		_ = in.st.MarkRolledBack(ctx, txnID)
		return err
	}
	if err := store.CompleteJournal(ctx, commitTx, txnID); err != nil {
		_ = commitTx.Rollback()
		_ = in.st.MarkRolledBack(ctx, txnID)
		return err
	}
	if err := commitTx.Commit(); err != nil {
		_ = in.st.MarkRolledBack(ctx, txnID)
		return werr.New(werr.KindDatabase, "failed to commit package removal", err).WithPackage(name)
	}
	return nil
}
