package installer

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/wright-pm/wright/pkg/store"
	"github.com/wright-pm/wright/pkg/werr"
)

// metadataNames are the archive entries collectFileEntries/copyFilesToRoot
// never treat as package content, since archive.Extract already parsed and
// discarded (or surfaced separately) their bodies.
var metadataNames = map[string]bool{
	".PKGINFO":  true,
	".FILELIST": true,
	".INSTALL":  true,
}

// walkExtracted visits every entry under extractDir except its metadata
// files, calling fn with the path relative to the package root (leading
// slash, matching the filelist convention) and the entry's own metadata
// obtained via Lstat so a symlink is never followed.
func walkExtracted(extractDir string, fn func(relPath, absPath string, info os.FileInfo) error) error {
	return filepath.WalkDir(extractDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(extractDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if metadataNames[rel] {
			return nil
		}
		info, err := os.Lstat(path)
		if err != nil {
			return err
		}
		return fn("/"+rel, path, info)
	})
}

// collectFileEntries builds the file manifest an install or upgrade will
// record for a package: one row per extracted entry, its kind, mode, size,
// and content hash (or, for a symlink, its target stored in the same hash
// field), with isConfig set for any path named in backupFiles.
func collectFileEntries(extractDir string, backupFiles []string) ([]store.File, error) {
	isConfig := make(map[string]bool, len(backupFiles))
	for _, f := range backupFiles {
		isConfig[f] = true
	}

	var out []store.File
	err := walkExtracted(extractDir, func(relPath, absPath string, info os.FileInfo) error {
		f := store.File{Path: relPath, Mode: uint32(info.Mode().Perm()), IsConfig: isConfig[relPath]}
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(absPath)
			if err != nil {
				return werr.New(werr.KindTransaction, "failed to read symlink "+relPath, err)
			}
			f.Kind = store.FileSymlink
			f.Hash = target
		case info.IsDir():
			f.Kind = store.FileDir
		case info.Mode()&os.ModeNamedPipe != 0:
			f.Kind = store.FileFIFO
		case info.Mode()&os.ModeCharDevice != 0:
			f.Kind = store.FileChar
		case info.Mode()&os.ModeDevice != 0:
			f.Kind = store.FileBlock
		default:
			f.Kind = store.FileRegular
			f.Size = info.Size()
			hash, err := sha256File(absPath)
			if err != nil {
				return werr.New(werr.KindTransaction, "failed to hash "+relPath, err)
			}
			f.Hash = hash
		}
		out = append(out, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// copyFilesToRoot copies every entry under extractDir into rootDir,
// backing up whatever already exists at each destination (when
// backupExisting is set) and recording every created file/directory on
// sess so a failure partway through can be unwound.
func copyFilesToRoot(extractDir, rootDir string, sess *session, backupExisting bool) error {
	return walkExtracted(extractDir, func(relPath, absPath string, info os.FileInfo) error {
		dest := filepath.Join(rootDir, filepath.Clean(relPath))

		switch {
		case info.IsDir():
			if _, err := os.Lstat(dest); os.IsNotExist(err) {
				if err := os.MkdirAll(dest, info.Mode().Perm()); err != nil {
					return werr.New(werr.KindTransaction, "failed to create directory "+dest, err)
				}
				return sess.recordDirCreated(dest)
			}
			return nil

		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(absPath)
			if err != nil {
				return werr.New(werr.KindTransaction, "failed to read symlink "+relPath, err)
			}
			if backupExisting {
				if err := backupExistingPath(dest, sess); err != nil {
					return err
				}
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return werr.New(werr.KindTransaction, "failed to create directory "+filepath.Dir(dest), err)
			}
			_ = os.Remove(dest)
			if err := os.Symlink(target, dest); err != nil {
				return werr.New(werr.KindTransaction, "failed to create symlink "+dest, err)
			}
			return sess.recordFileCreated(dest)

		case info.Mode()&(os.ModeNamedPipe|os.ModeDevice|os.ModeCharDevice) != 0:
			if backupExisting {
				if err := backupExistingPath(dest, sess); err != nil {
					return err
				}
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return werr.New(werr.KindTransaction, "failed to create directory "+filepath.Dir(dest), err)
			}
			_ = os.Remove(dest)
			if err := copyDeviceNode(dest, info); err != nil {
				return werr.New(werr.KindTransaction, "failed to create device node "+dest, err)
			}
			return sess.recordFileCreated(dest)

		default:
			if backupExisting {
				if err := backupExistingPath(dest, sess); err != nil {
					return err
				}
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return werr.New(werr.KindTransaction, "failed to create directory "+filepath.Dir(dest), err)
			}
			if err := copyFile(absPath, dest); err != nil {
				return werr.New(werr.KindTransaction, "failed to copy "+relPath, err)
			}
			_ = os.Chmod(dest, info.Mode().Perm())
			return sess.recordFileCreated(dest)
		}
	})
}

// backupExistingPath records whatever currently sits at dest — a regular
// file copied into the session's backup directory, a symlink remembered by
// its target — before it is about to be replaced. A dest with nothing at
// it is not an error: there is simply nothing to back up.
func backupExistingPath(dest string, sess *session) error {
	info, err := os.Lstat(dest)
	if err != nil {
		return nil
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(dest)
		if err != nil {
			return nil
		}
		return sess.recordSymlinkBackup(dest, target)
	}
	if info.Mode().IsRegular() {
		return sess.recordBackup(dest)
	}
	return nil
}

// copyDeviceNode recreates a FIFO, character, or block device entry at
// dest using the major/minor numbers staged by archive.Extract on the
// source it already created under the package's temp extraction
// directory.
func copyDeviceNode(dest string, info os.FileInfo) error {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return werr.New(werr.KindTransaction, "cannot determine device numbers for "+dest, nil)
	}
	mode := uint32(info.Mode().Perm())
	switch {
	case info.Mode()&os.ModeNamedPipe != 0:
		mode |= unix.S_IFIFO
		return unix.Mknod(dest, mode, 0)
	case info.Mode()&os.ModeCharDevice != 0:
		mode |= unix.S_IFCHR
		return unix.Mknod(dest, mode, int(st.Rdev))
	default:
		mode |= unix.S_IFBLK
		return unix.Mknod(dest, mode, int(st.Rdev))
	}
}

// backupShadowedFile copies the current bytes at rootDir/path into a
// durable location under backupDir, returning its path. Unlike session's
// per-transaction backups, which are discarded on commit, this copy
// outlives the installing transaction: it is only removed once a later
// removal of the shadowing package restores it to the original owner.
func backupShadowedFile(backupDir, rootDir, path string) (string, error) {
	src := filepath.Join(rootDir, filepath.Clean(path))
	dir := filepath.Join(backupDir, "shadows")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", werr.New(werr.KindTransaction, "failed to create shadow backup directory", err)
	}
	dst := filepath.Join(dir, uuid.NewString())
	if err := copyFile(src, dst); err != nil {
		return "", werr.New(werr.KindTransaction, "failed to back up shadowed file "+path, err)
	}
	return dst, nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
