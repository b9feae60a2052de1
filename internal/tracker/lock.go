package tracker

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// DefaultLockTimeout bounds how long NewTracker waits to acquire the
// advisory lock before giving up with ErrLockTimeout.
const DefaultLockTimeout = 60 * time.Second

// lockPollInterval is how often TryLockContext re-attempts the lock while
// waiting for a concurrent installer invocation to release it.
const lockPollInterval = 200 * time.Millisecond

// sentinelLockName is the advisory-lock file created under the repository's
// VCS control directory. Living inside .git/ keeps the lock out of the
// working tree so it never shows up as an untracked file in porcelain
// status, and ties its lifetime to the repository it protects.
const sentinelLockName = "githooks-installer.lock"

// acquireLock creates (or opens) the sentinel lock file under
// <repoRoot>/.git/ and blocks, polling every lockPollInterval, until either
// the lock is acquired or timeout elapses.
func acquireLock(repoRoot string, timeout time.Duration) (*flock.Flock, error) {
	path := filepath.Join(repoRoot, ".git", sentinelLockName)
	fl := flock.New(path)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, lockPollInterval)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}
	if !locked {
		return nil, ErrLockTimeout
	}
	return fl, nil
}
