package state

import (
	"sync"
	"time"

	"github.com/marmos91/nfs4state/internal/logger"
)

// GracePeriod manages the reclaim window after a server restart.
//
// Clients known before the restart are identified by their owner string,
// since client ids are reissued with a new boot epoch. While the grace
// period is active, only reclaiming clients may create state. It ends when
// the timer fires, when every expected owner sent RECLAIM_COMPLETE, or when
// Stop is called.
type GracePeriod struct {
	mu sync.Mutex

	active    bool
	duration  time.Duration
	startedAt time.Time
	timer     *time.Timer

	expected  map[string]struct{}
	reclaimed map[string]struct{}

	// onEnd is called outside the mutex once the grace period ends.
	onEnd func()
}

// NewGracePeriod creates an inactive grace period; call Start to begin it.
func NewGracePeriod(duration time.Duration, onEnd func()) *GracePeriod {
	return &GracePeriod{
		duration:  duration,
		expected:  make(map[string]struct{}),
		reclaimed: make(map[string]struct{}),
		onEnd:     onEnd,
	}
}

// Start begins the grace period for the given owners. With no owners to
// wait for the grace period is skipped.
func (g *GracePeriod) Start(owners []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active {
		return
	}
	if len(owners) == 0 || g.duration <= 0 {
		logger.Info("Grace period skipped", "expected_clients", len(owners))
		return
	}

	g.active = true
	g.expected = make(map[string]struct{}, len(owners))
	for _, o := range owners {
		g.expected[o] = struct{}{}
	}
	g.reclaimed = make(map[string]struct{})
	g.startedAt = time.Now()

	logger.Info("Grace period started",
		"duration", g.duration,
		"expected_clients", len(owners))

	g.timer = time.AfterFunc(g.duration, g.end)
}

// InGrace reports whether the grace period is active.
func (g *GracePeriod) InGrace() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Expected reports whether owner held state before the restart.
func (g *GracePeriod) Expected(owner string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.expected[owner]
	return ok
}

// Check decides whether state creation may go ahead. Non-reclaim requests
// are refused during grace; reclaims are refused outside it.
func (g *GracePeriod) Check(reclaim bool) error {
	inGrace := g.InGrace()
	switch {
	case inGrace && !reclaim:
		return ErrGrace
	case !inGrace && reclaim:
		return ErrNoGrace
	}
	return nil
}

// Reclaimed records RECLAIM_COMPLETE for owner, ending the grace period
// early once every expected owner has reclaimed.
func (g *GracePeriod) Reclaimed(owner string) {
	g.mu.Lock()
	if !g.active {
		g.mu.Unlock()
		return
	}

	g.reclaimed[owner] = struct{}{}
	logger.Debug("Grace period: client reclaimed",
		"owner", owner,
		"reclaimed", len(g.reclaimed),
		"expected", len(g.expected))

	for o := range g.expected {
		if _, ok := g.reclaimed[o]; !ok {
			g.mu.Unlock()
			return
		}
	}
	g.mu.Unlock()

	logger.Info("Grace period ending early: all expected clients reclaimed")
	g.end()
}

// end leaves the grace period. Idempotent.
func (g *GracePeriod) end() {
	g.mu.Lock()
	if !g.active {
		g.mu.Unlock()
		return
	}
	g.active = false
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	cb := g.onEnd
	reclaimed, expected := len(g.reclaimed), len(g.expected)
	g.mu.Unlock()

	logger.Info("Grace period ended",
		"reclaimed_clients", reclaimed,
		"expected_clients", expected)

	if cb != nil {
		cb()
	}
}

// ForceEnd ends an active grace period immediately, as if its timer had
// fired.
func (g *GracePeriod) ForceEnd() {
	logger.Info("Grace period force-ended")
	g.end()
}

// GraceStatus is a point-in-time description of the grace period.
type GraceStatus struct {
	Active           bool          `json:"active"`
	Duration         time.Duration `json:"-"`
	Remaining        time.Duration `json:"-"`
	StartedAt        time.Time     `json:"started_at,omitzero"`
	ExpectedClients  int           `json:"expected_clients"`
	ReclaimedClients int           `json:"reclaimed_clients"`
}

// Status returns a snapshot of the grace period.
func (g *GracePeriod) Status() GraceStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := GraceStatus{
		Active:           g.active,
		Duration:         g.duration,
		ExpectedClients:  len(g.expected),
		ReclaimedClients: len(g.reclaimed),
	}
	if g.active {
		st.StartedAt = g.startedAt
		st.Remaining = max(g.duration-time.Since(g.startedAt), 0)
	}
	return st
}

// Stop ends the grace period without invoking the end callback.
func (g *GracePeriod) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.active = false
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}
