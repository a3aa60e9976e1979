package installer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/wright-pm/wright/pkg/werr"
)

// Recover scans for transaction journal entries left pending by a process
// that crashed mid-install, mid-upgrade, or mid-remove, replays each one's
// action log in reverse to undo the partial change, and marks the journal
// entry rolled_back. Call this once at startup before any new transaction
// begins.
func (in *Installer) Recover(ctx context.Context) error {
	pending, err := in.st.PendingTransactions(ctx)
	if err != nil {
		return err
	}
	for _, txn := range pending {
		if txn.BackupPath != "" {
			if err := replayActionLog(txn.BackupPath + ".log"); err != nil {
				return werr.New(werr.KindTransaction, "failed to replay transaction log", err).WithPackage(txn.PackageName)
			}
			_ = os.RemoveAll(txn.BackupPath)
		}
		if err := in.st.MarkRolledBack(ctx, txn.ID); err != nil {
			return err
		}
	}
	return nil
}

func replayActionLog(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var actions []action
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var a action
		if err := dec.Decode(&a); err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		actions = append(actions, a)
	}

	var result error
	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]
		switch a.Kind {
		case actionFileCreated, actionDirCreated:
			if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
				result = multierror.Append(result, err)
			}
		case actionBackup:
			if err := copyFile(a.Backup, a.Path); err != nil {
				result = multierror.Append(result, err)
				continue
			}
			_ = os.Remove(a.Backup)
		case actionSymlinkBackup:
			_ = os.Remove(a.Path)
			if err := os.Symlink(a.Target, a.Path); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result
}
