package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wright-pm/wright/pkg/werr"
)

// RecordShadow creates a shadow row when a forced install overwrites a
// file already owned by another installed package. backupPath, when
// non-empty, names a durable copy of the file's pre-overwrite bytes that
// outlives the installing transaction, letting a later removal of
// shadowedByPackage restore them.
func RecordShadow(ctx context.Context, tx *sql.Tx, path, ownerPackage, shadowedByPackage, backupPath string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO shadows (path, owner_package, shadowed_by_package, backup_path) VALUES (?, ?, ?, ?)`,
		path, ownerPackage, shadowedByPackage, backupPath); err != nil {
		return werr.New(werr.KindDatabase, "failed to record shadow", err)
	}
	return nil
}

// ShadowsOfPath returns every shadow record for path, most recent first
// — the head of this list is the file's current owner.
func (s *Store) ShadowsOfPath(ctx context.Context, path string) ([]Shadow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, owner_package, shadowed_by_package, backup_path, created_at
		FROM shadows WHERE path = ? ORDER BY id DESC`, path)
	if err != nil {
		return nil, werr.New(werr.KindDatabase, "failed to list shadows", err)
	}
	defer rows.Close()
	var out []Shadow
	for rows.Next() {
		var sh Shadow
		var backupPath sql.NullString
		if err := rows.Scan(&sh.ID, &sh.Path, &sh.OwnerPackage, &sh.ShadowedByPackage, &backupPath, &sh.CreatedAt); err != nil {
			return nil, err
		}
		sh.BackupPath = backupPath.String
		out = append(out, sh)
	}
	return out, rows.Err()
}

// DeleteShadow removes a single shadow row by id, used once its backup
// (if any) has been restored to disk and the overlap it recorded is
// resolved.
func DeleteShadow(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM shadows WHERE id = ?`, id); err != nil {
		return werr.New(werr.KindDatabase, "failed to delete shadow", err)
	}
	return nil
}

// ShadowConflicts reports every active shadow as a human-readable
// message, for `wright doctor`.
func (s *Store) ShadowConflicts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, owner_package, shadowed_by_package FROM shadows ORDER BY id`)
	if err != nil {
		return nil, werr.New(werr.KindDatabase, "failed to enumerate shadow conflicts", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var path, owner, shadowedBy string
		if err := rows.Scan(&path, &owner, &shadowedBy); err != nil {
			return nil, err
		}
		out = append(out, fmt.Sprintf("path '%s' (owned by %s) is shadowed by %s", path, owner, shadowedBy))
	}
	return out, rows.Err()
}

// RemoveShadowsFor deletes every shadow row where shadowedByPackage is
// the given package — called when that package is removed, so the
// owning package regains a clean (unshadowed) ownership record.
func RemoveShadowsFor(ctx context.Context, tx *sql.Tx, shadowedByPackage string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM shadows WHERE shadowed_by_package = ?`, shadowedByPackage); err != nil {
		return werr.New(werr.KindDatabase, "failed to clear shadows", err)
	}
	return nil
}

// TransferShadowOwnership re-points every remaining shadow of path so
// its owner becomes newOwner — used when the original owner of a
// shadowed path is removed and the package that shadowed it takes over
// ownership.
func TransferShadowOwnership(ctx context.Context, tx *sql.Tx, path, newOwner string) error {
	if _, err := tx.ExecContext(ctx, `UPDATE shadows SET owner_package = ? WHERE path = ?`, newOwner, path); err != nil {
		return werr.New(werr.KindDatabase, "failed to transfer shadow ownership", err)
	}
	return nil
}
