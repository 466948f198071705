package state

import (
	"context"
	"time"

	"github.com/marmos91/nfs4state/internal/logger"
)

// ReapExpired removes every client whose lease has expired and detaches
// sessions the cache has evicted. It returns the number of clients removed.
func (sm *StateManager) ReapExpired() int {
	now := sm.now()
	removed := 0

	for _, c := range sm.ListClients() {
		if c.leaseExpired(now) {
			logger.Info("Client lease expired",
				logger.KeyClientID, c.id,
				logger.KeyOwner, c.owner,
				"expired_at", c.LeaseExpiry())
			sm.removeClient(c, ReasonLeaseExpired)
			removed++
			continue
		}
		c.pruneEvictedSessions()
	}
	return removed
}

// StartReaper runs ReapExpired every interval until ctx is cancelled or
// StopReaper is called. Calling it while a reaper runs is a no-op.
func (sm *StateManager) StartReaper(ctx context.Context, interval time.Duration) {
	sm.reaperMu.Lock()
	defer sm.reaperMu.Unlock()

	if sm.reaperCancel != nil {
		return
	}
	if interval <= 0 {
		interval = sm.leaseDuration / 4
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	sm.reaperCancel = cancel
	sm.reaperDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sm.ReapExpired(); n > 0 {
					logger.Debug("Lease reaper pass", "removed", n)
				}
			}
		}
	}()
}

// StopReaper stops the reaper started by StartReaper and waits for it.
func (sm *StateManager) StopReaper() {
	sm.reaperMu.Lock()
	cancel, done := sm.reaperCancel, sm.reaperDone
	sm.reaperCancel, sm.reaperDone = nil, nil
	sm.reaperMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
