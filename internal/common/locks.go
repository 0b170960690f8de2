package common

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CampaignLocks serializes mutating operations per campaign. Every mapping
// ledger mutation and every recompute for a campaign must run under its lock
// so a recompute sees either the pre- or fully-post state of a batch edit,
// never an interleaving. Campaigns are independent of each other.
//
// The locks are in-process: the only durable state lives in an embedded
// SQLite database owned by a single process.
type CampaignLocks struct {
	locks   map[string]chan struct{}
	mu      sync.Mutex
	timeout time.Duration
}

// DefaultLockTimeout bounds how long an operation waits for a campaign lock
// before failing with ErrConcurrentModification.
const DefaultLockTimeout = 5 * time.Second

// NewCampaignLocks creates a lock manager. A non-positive timeout falls back
// to DefaultLockTimeout.
func NewCampaignLocks(timeout time.Duration) *CampaignLocks {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &CampaignLocks{
		locks:   make(map[string]chan struct{}),
		timeout: timeout,
	}
}

// Acquire takes the lock for campaignID, waiting at most the configured
// timeout. It returns a release function on success. On timeout it returns
// ErrConcurrentModification; the caller should retry the whole operation.
func (c *CampaignLocks) Acquire(ctx context.Context, campaignID string) (func(), error) {
	c.mu.Lock()
	lock, ok := c.locks[campaignID]
	if !ok {
		lock = make(chan struct{}, 1)
		c.locks[campaignID] = lock
	}
	c.mu.Unlock()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case lock <- struct{}{}:
		return func() { <-lock }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("%w: campaign %s", ErrConcurrentModification, campaignID)
	}
}
