package ratelimit

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestAllow_Burst(t *testing.T) {
	l := NewLimiter(Limit{PerMinute: 60, Burst: 3})

	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Errorf("request %d should be allowed (within burst)", i+1)
		}
	}
	if l.Allow() {
		t.Error("request after burst exhaustion should be rejected")
	}
}

func TestAllow_Refill(t *testing.T) {
	now := time.Now()
	l := NewLimiter(Limit{PerMinute: 6, Burst: 2})
	l.now = func() time.Time { return now }

	l.Allow()
	l.Allow()
	if l.Allow() {
		t.Fatal("expected rejection after burst")
	}

	// 6 per minute refills one token every 10s.
	now = now.Add(5 * time.Second)
	if l.Allow() {
		t.Error("half a token should not be enough")
	}
	now = now.Add(6 * time.Second)
	if !l.Allow() {
		t.Error("expected a refilled token after 11s")
	}

	// The bucket never exceeds its burst.
	now = now.Add(time.Hour)
	for i := 0; i < 2; i++ {
		if !l.Allow() {
			t.Errorf("request %d after long idle should be allowed", i+1)
		}
	}
	if l.Allow() {
		t.Error("refill exceeded burst")
	}
}

func TestAllow_Concurrent(t *testing.T) {
	l := NewLimiter(Limit{PerMinute: 0, Burst: 50})

	var mu sync.Mutex
	var allowed int
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed %d concurrent requests, want 50", allowed)
	}
}

func TestCheckLimit(t *testing.T) {
	limiters := NewToolLimiters(map[string]Limit{"porewalk_simulate": {PerMinute: 1, Burst: 1}})

	if err := CheckLimit(limiters, "porewalk_simulate"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	err := CheckLimit(limiters, "porewalk_simulate")
	if err == nil || !strings.Contains(err.Error(), "porewalk_simulate") {
		t.Errorf("second call error = %v", err)
	}
	if err := CheckLimit(limiters, "unlimited_tool"); err != nil {
		t.Errorf("unconfigured tool: %v", err)
	}
}

func TestDefaultLimits(t *testing.T) {
	limits := DefaultLimits()
	for _, tool := range []string{"porewalk_simulate", "porewalk_runs", "porewalk_outcomes", "porewalk_scenarios"} {
		l, ok := limits[tool]
		if !ok {
			t.Errorf("no limit for %s", tool)
			continue
		}
		if l.Burst < 1 || l.PerMinute <= 0 {
			t.Errorf("%s: invalid limit %+v", tool, l)
		}
	}
}
