package store

import (
	"context"
	"database/sql"

	"github.com/wright-pm/wright/pkg/werr"
)

// BeginJournal writes a pending transaction journal entry within tx —
// the commit record if the surrounding mutation succeeds, the crash
// marker that triggers recovery if the process dies before it is marked
// completed.
func BeginJournal(ctx context.Context, tx *sql.Tx, txn *Transaction) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (txn_uuid, operation, package_name, old_version, new_version, status, backup_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		txn.UUID, string(txn.Operation), txn.PackageName, txn.OldVersion, txn.NewVersion, string(TxnPending), txn.BackupPath)
	if err != nil {
		return 0, werr.New(werr.KindTransaction, "failed to write journal entry", err).WithPackage(txn.PackageName)
	}
	return res.LastInsertId()
}

// CompleteJournal marks a journal entry completed within the same
// outer transaction as the mutation it records.
func CompleteJournal(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := tx.ExecContext(ctx, `UPDATE transactions SET status = ? WHERE id = ?`, string(TxnCompleted), id); err != nil {
		return werr.New(werr.KindTransaction, "failed to complete journal entry", err)
	}
	return nil
}

// MarkRolledBack marks a journal entry rolled_back. Unlike
// BeginJournal/CompleteJournal this runs in its own transaction, since
// it is called during crash recovery after the original transaction is
// known to be gone.
func (s *Store) MarkRolledBack(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE transactions SET status = ? WHERE id = ?`, string(TxnRolledBack), id); err != nil {
		return werr.New(werr.KindTransaction, "failed to mark journal entry rolled back", err)
	}
	return nil
}

// PendingTransactions returns every journal entry still in the pending
// state — at startup, each of these represents a crash mid-mutation and
// must be reconciled via rollback before normal operation resumes.
func (s *Store) PendingTransactions(ctx context.Context) ([]*Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, txn_uuid, timestamp, operation, package_name, old_version, new_version, status, backup_path
		FROM transactions WHERE status = ?`, string(TxnPending))
	if err != nil {
		return nil, werr.New(werr.KindDatabase, "failed to list pending transactions", err)
	}
	defer rows.Close()
	var out []*Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(row interface{ Scan(...any) error }) (*Transaction, error) {
	var t Transaction
	var op, status string
	if err := row.Scan(&t.ID, &t.UUID, &t.Timestamp, &op, &t.PackageName, &t.OldVersion, &t.NewVersion, &status, &t.BackupPath); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, werr.New(werr.KindDatabase, "failed to scan transaction row", err)
	}
	t.Operation = TxnOp(op)
	t.Status = TxnStatus(status)
	return &t, nil
}
