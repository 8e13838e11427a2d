package installdb

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// fileLock is an advisory, process-local-or-wider exclusive lock over
// one package's record file: just the syscall.Flock mechanics this
// package needs, with no lock-holder metadata, since the install
// database has no use for debugging cross-process contention.
type fileLock struct {
	file *os.File
}

func acquireLock(path string) (*fileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("installdb: create lock directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("installdb: open lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("installdb: acquire lock: %w", err)
	}
	return &fileLock{file: f}, nil
}

func (l *fileLock) release() error {
	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	if err != nil {
		return fmt.Errorf("installdb: release lock: %w", err)
	}
	return closeErr
}
