package store

import (
	"context"
	"database/sql"

	"github.com/wright-pm/wright/pkg/werr"
)

// InsertPackage atomically writes pkg, its files, its dependency edges,
// and its provided names within tx — the bundle spec §4.3 requires for
// "insert-package". Callers drive the surrounding transaction so this
// can be composed with journal writes in pkg/installer.
func InsertPackage(ctx context.Context, tx *sql.Tx, pkg *Package, files []File, deps []Dependency, provides []string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO packages (name, version, release, arch, description, license, url, maintainer,
			install_size, archive_hash, post_install_script, post_upgrade_script, pre_remove_script)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pkg.Name, pkg.Version, pkg.Release, pkg.Arch, pkg.Description, pkg.License, pkg.URL, pkg.Maintainer,
		pkg.InstallSize, pkg.ArchiveHash, pkg.PostInstall, pkg.PostUpgrade, pkg.PreRemove)
	if err != nil {
		return 0, werr.New(werr.KindDatabase, "failed to insert package", err).WithPackage(pkg.Name)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, werr.New(werr.KindDatabase, "failed to read inserted package id", err)
	}

	for _, f := range files {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO files (package_id, path, file_type, file_mode, file_size, file_hash, is_config)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, f.Path, string(f.Kind), f.Mode, f.Size, f.Hash, f.IsConfig); err != nil {
			return 0, werr.New(werr.KindDatabase, "failed to insert file", err).WithPackage(pkg.Name)
		}
	}
	for _, d := range deps {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dependencies (package_id, depends_on, version_constraint, dep_type)
			VALUES (?, ?, ?, ?)`,
			id, d.DependsOn, d.VersionConstraint, string(d.Kind)); err != nil {
			return 0, werr.New(werr.KindDatabase, "failed to insert dependency", err).WithPackage(pkg.Name)
		}
	}
	for _, name := range provides {
		if _, err := tx.ExecContext(ctx, `INSERT INTO provides (package_id, name) VALUES (?, ?)`, id, name); err != nil {
			return 0, werr.New(werr.KindDatabase, "failed to insert provide", err).WithPackage(pkg.Name)
		}
	}
	return id, nil
}

// DeletePackage removes pkg and its files/dependencies/provides (the
// foreign keys cascade); it does not touch shadows, which the caller
// must transfer or delete explicitly since their ownership semantics
// outlive a single package row.
func DeletePackage(ctx context.Context, tx *sql.Tx, name string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM packages WHERE name = ?`, name)
	if err != nil {
		return werr.New(werr.KindDatabase, "failed to delete package", err).WithPackage(name)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return werr.New(werr.KindDatabase, "package not found", nil).WithPackage(name)
	}
	return nil
}

func scanPackage(row interface{ Scan(...any) error }) (*Package, error) {
	var p Package
	err := row.Scan(&p.ID, &p.Name, &p.Version, &p.Release, &p.Arch, &p.Description, &p.License, &p.URL,
		&p.Maintainer, &p.InstalledAt, &p.InstallSize, &p.ArchiveHash, &p.PostInstall, &p.PostUpgrade, &p.PreRemove)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const packageColumns = `id, name, version, release, arch, description, license, url, maintainer,
	installed_at, install_size, archive_hash, post_install_script, post_upgrade_script, pre_remove_script`

// LookupByName returns the installed package named name, or (nil, false)
// if no such package is installed.
func (s *Store) LookupByName(ctx context.Context, name string) (*Package, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+packageColumns+` FROM packages WHERE name = ?`, name)
	p, err := scanPackage(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, werr.New(werr.KindDatabase, "failed to look up package", err).WithPackage(name)
	}
	return p, true, nil
}

// ListPackages returns every installed package, ordered by name.
func (s *Store) ListPackages(ctx context.Context) ([]*Package, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+packageColumns+` FROM packages ORDER BY name`)
	if err != nil {
		return nil, werr.New(werr.KindDatabase, "failed to list packages", err)
	}
	defer rows.Close()
	var out []*Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, werr.New(werr.KindDatabase, "failed to scan package row", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// OwnerOfPath returns the package name that currently owns path
// according to the files table (it does not account for shadowing — a
// shadowed path's true current owner is resolved by pkg/installer via
// the shadows table).
func (s *Store) OwnerOfPath(ctx context.Context, path string) (string, bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `
		SELECT p.name FROM files f JOIN packages p ON p.id = f.package_id WHERE f.path = ?`, path).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, werr.New(werr.KindDatabase, "failed to look up file owner", err)
	}
	return name, true, nil
}

// FilesOf returns every file row belonging to the named package.
func (s *Store) FilesOf(ctx context.Context, name string) ([]File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.package_id, f.path, f.file_type, f.file_mode, f.file_size, f.file_hash, f.is_config
		FROM files f JOIN packages p ON p.id = f.package_id WHERE p.name = ?`, name)
	if err != nil {
		return nil, werr.New(werr.KindDatabase, "failed to list files", err).WithPackage(name)
	}
	defer rows.Close()
	var out []File
	for rows.Next() {
		var f File
		var kind string
		if err := rows.Scan(&f.ID, &f.PackageID, &f.Path, &kind, &f.Mode, &f.Size, &f.Hash, &f.IsConfig); err != nil {
			return nil, werr.New(werr.KindDatabase, "failed to scan file row", err)
		}
		f.Kind = FileKind(kind)
		out = append(out, f)
	}
	return out, rows.Err()
}

// DependentsOf returns every installed package with a dependency edge
// onto target, optionally filtered to a single kind ("" for any kind).
func (s *Store) DependentsOf(ctx context.Context, target string, kind DepKind) ([]string, error) {
	query := `
		SELECT DISTINCT p.name FROM dependencies d JOIN packages p ON p.id = d.package_id
		WHERE d.depends_on = ?`
	args := []any{target}
	if kind != "" {
		query += ` AND d.dep_type = ?`
		args = append(args, string(kind))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, werr.New(werr.KindDatabase, "failed to list dependents", err).WithPackage(target)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// DependenciesOf returns the dependency edges the named package declares.
func (s *Store) DependenciesOf(ctx context.Context, name string) ([]Dependency, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.package_id, d.depends_on, d.version_constraint, d.dep_type
		FROM dependencies d JOIN packages p ON p.id = d.package_id WHERE p.name = ?`, name)
	if err != nil {
		return nil, werr.New(werr.KindDatabase, "failed to list dependencies", err).WithPackage(name)
	}
	defer rows.Close()
	var out []Dependency
	for rows.Next() {
		var d Dependency
		var kind string
		if err := rows.Scan(&d.ID, &d.PackageID, &d.DependsOn, &d.VersionConstraint, &kind); err != nil {
			return nil, err
		}
		d.Kind = DepKind(kind)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ProviderOf returns the installed package (if any) whose `provides`
// list names virtualName.
func (s *Store) ProviderOf(ctx context.Context, virtualName string) (string, bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `
		SELECT p.name FROM provides pr JOIN packages p ON p.id = pr.package_id WHERE pr.name = ?`, virtualName).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, werr.New(werr.KindDatabase, "failed to look up provider", err)
	}
	return name, true, nil
}
