package heartbeat

import (
	"testing"
	"time"
)

func TestArmedUntilFirstTick(t *testing.T) {
	c := NewController(100 * time.Millisecond)
	if c.State() != Armed {
		t.Fatalf("expected Armed before first tick, got %s", c.State())
	}
}

func TestTickFiresListenersAtInterval(t *testing.T) {
	c := NewController(100 * time.Millisecond)
	var fired []time.Duration
	c.AddListener(func(now time.Duration) { fired = append(fired, now) })

	c.Tick(50 * time.Millisecond)
	if len(fired) != 0 {
		t.Fatalf("expected no tick before the interval elapses, got %v", fired)
	}

	c.Tick(100 * time.Millisecond)
	if len(fired) != 1 || fired[0] != 100*time.Millisecond {
		t.Fatalf("expected one tick at 100ms, got %v", fired)
	}
	if c.State() != Armed {
		t.Fatalf("expected the controller back in Armed once the tick completes, got %s", c.State())
	}
}

func TestStateIsRunningWhileListenersFire(t *testing.T) {
	c := NewController(100 * time.Millisecond)
	var observed State
	c.AddListener(func(time.Duration) { observed = c.State() })

	c.Tick(100 * time.Millisecond)

	if observed != Running {
		t.Fatalf("expected Running while listeners fire, got %s", observed)
	}
	if c.State() != Armed {
		t.Fatalf("expected Armed again after the tick completes, got %s", c.State())
	}
}

func TestTickCatchesUpMultipleIntervals(t *testing.T) {
	c := NewController(100 * time.Millisecond)
	var fired []time.Duration
	c.AddListener(func(now time.Duration) { fired = append(fired, now) })

	c.Tick(350 * time.Millisecond)
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}
	if len(fired) != len(want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("fired[%d] = %v, want %v", i, fired[i], want[i])
		}
	}
	if c.NextTickAt() != 400*time.Millisecond {
		t.Fatalf("NextTickAt = %v, want 400ms", c.NextTickAt())
	}
}

func TestListenersRunInRegistrationOrder(t *testing.T) {
	c := NewController(10 * time.Millisecond)
	var order []int
	c.AddListener(func(time.Duration) { order = append(order, 1) })
	c.AddListener(func(time.Duration) { order = append(order, 2) })

	c.Tick(10 * time.Millisecond)
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("unexpected listener order: %v", order)
	}
}

func TestStopSuppressesFurtherTicks(t *testing.T) {
	c := NewController(10 * time.Millisecond)
	var count int
	c.AddListener(func(time.Duration) { count++ })

	c.Tick(10 * time.Millisecond)
	c.Stop()
	c.Tick(20 * time.Millisecond)

	if count != 1 {
		t.Fatalf("expected exactly 1 tick before stop, got %d", count)
	}
	if c.State() != Stopped {
		t.Fatalf("expected Stopped, got %s", c.State())
	}
}

func TestTicksCounterTracksFiredIntervals(t *testing.T) {
	c := NewController(5 * time.Millisecond)
	c.AddListener(func(time.Duration) {})
	c.Tick(23 * time.Millisecond)
	if c.Ticks() != 4 {
		t.Fatalf("Ticks() = %d, want 4", c.Ticks())
	}
}
