package store

import (
	"context"
	"path/filepath"
	"testing"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "packages.db")
	s, err := Open(context.Background(), Config{Path: dbPath})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAndLookupPackage(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tx, err := s.BeginTx(ctx)
	if err != nil {
		t.Fatal(err)
	}
	pkg := &Package{Name: "hello", Version: "1.0.0", Release: 1, Arch: "x86_64", Description: "d"}
	files := []File{{Path: "/usr/bin/hello", Kind: FileRegular, Mode: 0o755}}
	deps := []Dependency{{DependsOn: "glibc", Kind: DepRuntime}}
	id, err := InsertPackage(ctx, tx, pkg, files, deps, []string{"hello-cli"})
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Fatal("expected non-zero package id")
	}

	got, ok, err := s.LookupByName(ctx, "hello")
	if err != nil || !ok {
		t.Fatalf("LookupByName() = %v, %v, %v", got, ok, err)
	}
	if got.Version != "1.0.0" {
		t.Fatalf("unexpected version: %+v", got)
	}

	owner, ok, err := s.OwnerOfPath(ctx, "/usr/bin/hello")
	if err != nil || !ok || owner != "hello" {
		t.Fatalf("OwnerOfPath() = %v, %v, %v", owner, ok, err)
	}

	provider, ok, err := s.ProviderOf(ctx, "hello-cli")
	if err != nil || !ok || provider != "hello" {
		t.Fatalf("ProviderOf() = %v, %v, %v", provider, ok, err)
	}
}

func TestDependentsOf(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tx, _ := s.BeginTx(ctx)
	_, err := InsertPackage(ctx, tx,
		&Package{Name: "libfoo", Version: "1.0", Release: 1, Arch: "x86_64"}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = InsertPackage(ctx, tx,
		&Package{Name: "app", Version: "1.0", Release: 1, Arch: "x86_64"}, nil,
		[]Dependency{{DependsOn: "libfoo", Kind: DepLink}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	dependents, err := s.DependentsOf(ctx, "libfoo", DepLink)
	if err != nil {
		t.Fatal(err)
	}
	if len(dependents) != 1 || dependents[0] != "app" {
		t.Fatalf("DependentsOf() = %v", dependents)
	}
}

func TestShadowLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tx, _ := s.BeginTx(ctx)
	if err := RecordShadow(ctx, tx, "/usr/bin/foo", "pkgA", "pkgB", ""); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	shadows, err := s.ShadowsOfPath(ctx, "/usr/bin/foo")
	if err != nil || len(shadows) != 1 || shadows[0].OwnerPackage != "pkgA" {
		t.Fatalf("ShadowsOfPath() = %+v, %v", shadows, err)
	}

	conflicts, err := s.ShadowConflicts(ctx)
	if err != nil || len(conflicts) != 1 {
		t.Fatalf("ShadowConflicts() = %v, %v", conflicts, err)
	}
}

func TestTransactionJournalLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tx, _ := s.BeginTx(ctx)
	id, err := BeginJournal(ctx, tx, &Transaction{UUID: "t-1", Operation: OpInstall, PackageName: "hello", NewVersion: "1.0.0"})
	if err != nil {
		t.Fatal(err)
	}
	if err := CompleteJournal(ctx, tx, id); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	pending, err := s.PendingTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending transactions after completion, got %v", pending)
	}
}

func TestCrashRecoveryScenario(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tx, _ := s.BeginTx(ctx)
	id, err := BeginJournal(ctx, tx, &Transaction{UUID: "t-2", Operation: OpInstall, PackageName: "crashed"})
	if err != nil {
		t.Fatal(err)
	}
	// Simulate a crash: the journal entry commits as pending but the
	// installer never reaches CompleteJournal.
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	pending, err := s.PendingTransactions(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected exactly one pending transaction, got %v, %v", pending, err)
	}
	if err := s.MarkRolledBack(ctx, id); err != nil {
		t.Fatal(err)
	}
	pending, err = s.PendingTransactions(ctx)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected no pending transactions after rollback, got %v, %v", pending, err)
	}
}

func TestAssumedIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.Assume(ctx, "externally-managed", "1.0"); err != nil {
		t.Fatal(err)
	}
	if err := s.Assume(ctx, "externally-managed", "2.0"); err != nil {
		t.Fatal(err)
	}
	a, ok, err := s.LookupAssumed(ctx, "externally-managed")
	if err != nil || !ok || a.Version != "2.0" {
		t.Fatalf("LookupAssumed() = %+v, %v, %v", a, ok, err)
	}

	if err := s.Unassume(ctx, "externally-managed"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.LookupAssumed(ctx, "externally-managed"); ok {
		t.Fatal("expected assumed record to be gone after Unassume")
	}
}
