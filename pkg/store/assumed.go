package store

import (
	"context"
	"database/sql"

	"github.com/wright-pm/wright/pkg/werr"
)

// Assume records or updates an assumed package: idempotent, a second
// call for the same name simply updates its recorded version.
func (s *Store) Assume(ctx context.Context, name, version string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assumed (name, version) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET version = excluded.version, updated_at = CURRENT_TIMESTAMP`,
		name, version)
	if err != nil {
		return werr.New(werr.KindDatabase, "failed to record assumed package", err).WithPackage(name)
	}
	return nil
}

// Unassume deletes an assumed record. It never touches a real installed
// package row, even if one exists with the same name — assumed records
// are a distinct table by design.
func (s *Store) Unassume(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assumed WHERE name = ?`, name)
	if err != nil {
		return werr.New(werr.KindDatabase, "failed to remove assumed package", err).WithPackage(name)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return werr.New(werr.KindValidation, "no assumed package with that name", nil).WithPackage(name)
	}
	return nil
}

// LookupAssumed returns the assumed record for name, if any.
func (s *Store) LookupAssumed(ctx context.Context, name string) (*Assumed, bool, error) {
	var a Assumed
	err := s.db.QueryRowContext(ctx, `SELECT id, name, version, updated_at FROM assumed WHERE name = ?`, name).
		Scan(&a.ID, &a.Name, &a.Version, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, werr.New(werr.KindDatabase, "failed to look up assumed package", err)
	}
	return &a, true, nil
}

// ReplaceAssumedOnInstall deletes any assumed record sharing the name
// of a package being installed for real — spec §4.11 "Assumed records
// ... are automatically replaced when a real package by the same name
// is installed."
func ReplaceAssumedOnInstall(ctx context.Context, tx *sql.Tx, name string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM assumed WHERE name = ?`, name); err != nil {
		return werr.New(werr.KindDatabase, "failed to clear assumed record", err)
	}
	return nil
}
