package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/wright-pm/wright/pkg/store"
)

func TestRecoverReplaysBackupAction(t *testing.T) {
	in, st, _ := setupTestInstaller(t)
	ctx := context.Background()

	workDir := t.TempDir()
	original := filepath.Join(workDir, "config.txt")
	if err := os.WriteFile(original, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	sess, err := newSession(in.cfg.BackupDir, "crash-txn")
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.recordBackup(original); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(original, []byte("overwritten"), 0o644); err != nil {
		t.Fatal(err)
	}

	tx, err := st.BeginTx(ctx)
	if err != nil {
		t.Fatal(err)
	}
	txnID, err := store.BeginJournal(ctx, tx, &store.Transaction{
		UUID: "crash-txn", Operation: store.OpInstall, PackageName: "crashed-pkg",
		NewVersion: "1.0.0", BackupPath: sess.dir,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	// The process "crashes" here: no rollback() or commit() is called,
	// leaving the journal entry pending and the action log on disk.

	if err := in.Recover(ctx); err != nil {
		t.Fatalf("Recover() error: %v", err)
	}

	data, err := os.ReadFile(original)
	if err != nil {
		t.Fatalf("expected file to survive recovery: %v", err)
	}
	if string(data) != "original" {
		t.Fatalf("expected recovery to restore original content, got %q", data)
	}

	pending, err := st.PendingTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range pending {
		if p.ID == txnID {
			t.Fatal("expected journal entry to no longer be pending after recovery")
		}
	}
}

func TestRecoverIsNoOpWithNoPendingTransactions(t *testing.T) {
	in, _, _ := setupTestInstaller(t)
	if err := in.Recover(context.Background()); err != nil {
		t.Fatalf("Recover() error: %v", err)
	}
}
