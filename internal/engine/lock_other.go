// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package engine

import "fmt"

// TransactionLock is a stub on platforms without flock. birb manages a Unix
// filesystem layout, so non-Unix builds exist only for cross-compiled tooling.
type TransactionLock struct{}

// LockHeldError reports that another birb process holds the transaction lock.
type LockHeldError struct {
	Path string
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("another birb process is running (lock held on %s)", e.Path)
}

// AcquireLock is a no-op without flock support.
func AcquireLock(path string) (*TransactionLock, error) {
	return &TransactionLock{}, nil
}

// Release is a no-op without flock support.
func (l *TransactionLock) Release() {}
