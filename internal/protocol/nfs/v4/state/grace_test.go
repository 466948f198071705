package state

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestGracePeriod_Active(t *testing.T) {
	gp := NewGracePeriod(100*time.Millisecond, nil)
	defer gp.Stop()

	if gp.InGrace() {
		t.Error("grace period should be inactive before Start")
	}

	gp.Start([]string{"a", "b"})
	if !gp.InGrace() {
		t.Error("grace period should be active after Start")
	}

	time.Sleep(200 * time.Millisecond)
	if gp.InGrace() {
		t.Error("grace period should be inactive after duration")
	}
}

func TestGracePeriod_SkippedWithoutClients(t *testing.T) {
	gp := NewGracePeriod(time.Hour, nil)
	gp.Start(nil)
	if gp.InGrace() {
		t.Error("grace period with no expected clients should be skipped")
	}
}

func TestGracePeriod_EarlyExit(t *testing.T) {
	var ended atomic.Int32
	gp := NewGracePeriod(time.Hour, func() { ended.Add(1) })
	defer gp.Stop()

	gp.Start([]string{"a", "b"})

	gp.Reclaimed("a")
	if !gp.InGrace() {
		t.Fatal("grace period should still be active with one client outstanding")
	}

	gp.Reclaimed("b")
	if gp.InGrace() {
		t.Error("grace period should end once every client reclaimed")
	}
	if ended.Load() != 1 {
		t.Errorf("onEnd called %d times, want 1", ended.Load())
	}
}

func TestGracePeriod_Check(t *testing.T) {
	gp := NewGracePeriod(time.Hour, nil)
	defer gp.Stop()

	if err := gp.Check(false); err != nil {
		t.Errorf("Check(false) outside grace = %v, want nil", err)
	}
	if err := gp.Check(true); !errors.Is(err, ErrNoGrace) {
		t.Errorf("Check(true) outside grace = %v, want ErrNoGrace", err)
	}

	gp.Start([]string{"a"})
	if err := gp.Check(false); !errors.Is(err, ErrGrace) {
		t.Errorf("Check(false) in grace = %v, want ErrGrace", err)
	}
	if err := gp.Check(true); err != nil {
		t.Errorf("Check(true) in grace = %v, want nil", err)
	}
}

func TestGracePeriod_StopSkipsCallback(t *testing.T) {
	var ended atomic.Int32
	gp := NewGracePeriod(20*time.Millisecond, func() { ended.Add(1) })
	gp.Start([]string{"a"})
	gp.Stop()

	time.Sleep(50 * time.Millisecond)
	if ended.Load() != 0 {
		t.Error("Stop must not invoke onEnd")
	}
}

func TestGracePeriod_StatusAndForceEnd(t *testing.T) {
	var ended atomic.Int32
	gp := NewGracePeriod(time.Hour, func() { ended.Add(1) })
	defer gp.Stop()

	if st := gp.Status(); st.Active || st.ExpectedClients != 0 {
		t.Fatalf("unexpected status before Start: %+v", st)
	}

	gp.Start([]string{"a", "b"})
	gp.Reclaimed("a")

	st := gp.Status()
	if !st.Active {
		t.Fatal("grace period should be active")
	}
	if st.ExpectedClients != 2 || st.ReclaimedClients != 1 {
		t.Errorf("clients = %d/%d, want 1/2", st.ReclaimedClients, st.ExpectedClients)
	}
	if st.Remaining <= 0 || st.Remaining > time.Hour {
		t.Errorf("remaining = %v, want within (0, 1h]", st.Remaining)
	}
	if st.StartedAt.IsZero() {
		t.Error("started_at should be set")
	}

	gp.ForceEnd()
	if gp.InGrace() {
		t.Error("grace period should be inactive after ForceEnd")
	}
	if ended.Load() != 1 {
		t.Errorf("end callback ran %d times, want 1", ended.Load())
	}

	gp.ForceEnd()
	if ended.Load() != 1 {
		t.Error("ForceEnd on an inactive grace period must not run the callback")
	}
}
