// SPDX-License-Identifier: MPL-2.0

//go:build unix

package engine

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// TransactionLock holds an exclusive advisory flock for the duration of a
// transaction, serializing birb processes against the same state directory.
// The zero-byte lock file is harmless if orphaned: the kernel drops the
// flock when the fd closes, including on process crash.
type TransactionLock struct {
	file *os.File
}

// LockHeldError reports that another birb process holds the transaction lock.
type LockHeldError struct {
	Path string
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("another birb process is running (lock held on %s)", e.Path)
}

// AcquireLock opens (or creates) the lock file and takes a non-blocking
// exclusive flock. A lock already held by another process is a LockHeldError;
// waiting silently behind a long build would surprise the operator more than
// failing fast does.
func AcquireLock(path string) (*TransactionLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, &LockHeldError{Path: path}
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}
	return &TransactionLock{file: f}, nil
}

// Release unlocks and closes the lock file. Safe to call more than once.
func (l *TransactionLock) Release() {
	if l == nil || l.file == nil {
		return
	}
	// LOCK_UN before Close for explicitness; Close also releases the flock.
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}
