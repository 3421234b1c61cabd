package fileutil

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/giantswarm/smoketest/internal/sentinel"
	"github.com/gofrs/flock"
)

// ErrDirLocked is returned by LockDir when another owner, in this or another
// process, already holds the directory lock.
const ErrDirLocked = sentinel.Error("directory is locked by another owner")

// LockFileName is the lock file LockDir creates inside the locked directory.
const LockFileName = ".node.lock"

// DirLock is an exclusive advisory lock on a directory.
type DirLock struct {
	fl *flock.Flock
}

// LockDir takes an exclusive lock on dir without blocking. It fails with
// ErrDirLocked when the lock is held elsewhere.
func LockDir(dir string) (*DirLock, error) {
	path := filepath.Join(dir, LockFileName)
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring file lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("acquiring file lock %s: %w", path, ErrDirLocked)
	}
	return &DirLock{fl: fl}, nil
}

// Release unlocks and closes the lock file. The file itself stays on disk:
// removing it could invalidate a lock another process acquired meanwhile.
// Safe to call on a nil DirLock and more than once.
func (l *DirLock) Release(logger *slog.Logger) {
	if l == nil || l.fl == nil {
		return
	}
	if err := l.fl.Close(); err != nil && logger != nil {
		logger.Debug("failed to release directory lock", "path", l.fl.Path(), "err", err)
	}
	l.fl = nil
}
