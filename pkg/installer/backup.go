package installer

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/wright-pm/wright/pkg/werr"
)

// actionKind labels one entry in a transaction's on-disk action log.
type actionKind string

const (
	actionFileCreated   actionKind = "file_created"
	actionDirCreated    actionKind = "dir_created"
	actionBackup        actionKind = "backup"
	actionSymlinkBackup actionKind = "symlink_backup"
)

// action is one journaled, reversible filesystem change. The log is a
// stream of JSON objects (one per line) rather than the tab-delimited
// format a hand-rolled parser would need, since encoding/json already
// handles paths containing any byte a delimiter scheme would have to
// escape.
type action struct {
	Kind   actionKind `json:"kind"`
	Path   string     `json:"path"`
	Backup string     `json:"backup,omitempty"`
	Target string     `json:"target,omitempty"`
}

// session tracks every reversible change made during one install, upgrade,
// or remove transaction. undo is the fast path: if the mutation fails in
// the same process that started it, session.rollback() unwinds everything
// immediately. The action log at logPath is the slow path: if the process
// crashes first, Recover replays it from disk at the next startup.
type session struct {
	dir     string
	logPath string
	undo    rollbackStack
}

func newSession(backupRoot, txnUUID string) (*session, error) {
	dir := filepath.Join(backupRoot, txnUUID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, werr.New(werr.KindTransaction, "failed to create transaction backup directory", err)
	}
	return &session{dir: dir, logPath: dir + ".log"}, nil
}

func (s *session) append(a action) error {
	f, err := os.OpenFile(s.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return werr.New(werr.KindTransaction, "failed to open transaction log", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(a); err != nil {
		return werr.New(werr.KindTransaction, "failed to append transaction log entry", err)
	}
	return f.Sync()
}

func (s *session) recordFileCreated(path string) error {
	if err := s.append(action{Kind: actionFileCreated, Path: path}); err != nil {
		return err
	}
	s.undo.push(func() error { return os.Remove(path) })
	return nil
}

func (s *session) recordDirCreated(path string) error {
	if err := s.append(action{Kind: actionDirCreated, Path: path}); err != nil {
		return err
	}
	// os.Remove only removes an empty directory; a non-empty one means
	// other files landed inside it after creation, which is expected and
	// left alone.
	s.undo.push(func() error { return os.Remove(path) })
	return nil
}

func (s *session) backupPath(original string) string {
	return filepath.Join(s.dir, filepath.Clean("/"+original))
}

// recordBackup copies original into the session's backup directory before
// it is about to be overwritten, so rollback or crash recovery can restore
// it.
func (s *session) recordBackup(original string) error {
	dst := s.backupPath(original)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return werr.New(werr.KindTransaction, "failed to create backup directory", err)
	}
	if err := copyFile(original, dst); err != nil {
		return werr.New(werr.KindTransaction, "failed to back up "+original, err)
	}
	if err := s.append(action{Kind: actionBackup, Path: original, Backup: dst}); err != nil {
		return err
	}
	s.undo.push(func() error {
		if err := copyFile(dst, original); err != nil {
			return err
		}
		return os.Remove(dst)
	})
	return nil
}

// recordSymlinkBackup remembers a symlink's target before it is replaced,
// so rollback can recreate it without needing a copy on disk.
func (s *session) recordSymlinkBackup(original, target string) error {
	if err := s.append(action{Kind: actionSymlinkBackup, Path: original, Target: target}); err != nil {
		return err
	}
	s.undo.push(func() error {
		_ = os.Remove(original)
		return os.Symlink(target, original)
	})
	return nil
}

// rollback undoes every recorded change in-process, then discards the
// session's backup directory and action log.
func (s *session) rollback() error {
	err := s.undo.run()
	_ = os.RemoveAll(s.dir)
	_ = os.Remove(s.logPath)
	return err
}

// commit discards the backup copies and action log: the transaction
// succeeded and nothing will ever need to be undone.
func (s *session) commit() {
	_ = os.RemoveAll(s.dir)
	_ = os.Remove(s.logPath)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
