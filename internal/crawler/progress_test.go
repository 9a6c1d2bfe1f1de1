package crawler

import (
	"testing"
	"time"
)

// fakeClock returns start, then start+step, start+2*step, ... on each call.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	t := c.t
	c.t = c.t.Add(c.step)
	return t
}

func TestProgress_TickReportsEveryTen(t *testing.T) {
	start := time.Date(2020, 8, 1, 12, 0, 0, 0, time.UTC)
	current := start
	p := NewProgress(100, func() time.Time { return current })

	for i := 1; i <= 25; i++ {
		current = start.Add(time.Duration(i) * 2 * time.Second)
		est, ok := p.Tick()
		if wantOK := i%ReportEvery == 0; ok != wantOK {
			t.Fatalf("Tick() #%d reported = %v, want %v", i, ok, wantOK)
		}
		if !ok {
			continue
		}
		if est.Collected != i {
			t.Errorf("Collected = %d, want %d", est.Collected, i)
		}
		if est.PerItem != 2*time.Second {
			t.Errorf("PerItem = %v, want 2s", est.PerItem)
		}
		wantRemaining := time.Duration(100-i) * 2 * time.Second
		if est.Remaining != wantRemaining {
			t.Errorf("Remaining = %v, want %v", est.Remaining, wantRemaining)
		}
	}

	if p.Count() != 25 {
		t.Errorf("Count() = %d, want 25", p.Count())
	}
}

func TestProgress_EstimateString(t *testing.T) {
	start := time.Date(2020, 8, 1, 12, 0, 0, 0, time.UTC)

	bounded := NewProgress(1012, (&fakeClock{t: start}).now)
	bounded.count = 10
	bounded.now = func() time.Time { return start.Add(20 * time.Second) }
	if got, want := bounded.Estimate().String(), "collected 10/1,012 listings, about 33 mins 24s left"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	unbounded := NewProgress(0, func() time.Time { return start })
	unbounded.count = 10
	unbounded.now = func() time.Time { return start.Add(25 * time.Second) }
	if got, want := unbounded.Estimate().String(), "collected 10 listings, 2.5s per listing"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestProgress_RemainingNeverNegative(t *testing.T) {
	start := time.Date(2020, 8, 1, 12, 0, 0, 0, time.UTC)
	p := NewProgress(5, func() time.Time { return start })
	p.now = func() time.Time { return start.Add(time.Minute) }
	p.count = 10

	if est := p.Estimate(); est.Remaining != 0 {
		t.Errorf("Remaining = %v, want 0 once past the expected total", est.Remaining)
	}
}

func TestEstimate_MinutesSeconds(t *testing.T) {
	tests := []struct {
		remaining   time.Duration
		wantMinutes int
		wantSeconds int
	}{
		{0, 0, 0},
		{59 * time.Second, 0, 59},
		{125 * time.Second, 2, 5},
		{3*time.Minute + 400*time.Millisecond, 3, 0},
		{119600 * time.Millisecond, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.remaining.String(), func(t *testing.T) {
			m, s := Estimate{Remaining: tt.remaining}.MinutesSeconds()
			if m != tt.wantMinutes || s != tt.wantSeconds {
				t.Errorf("MinutesSeconds() = %d, %d, want %d, %d", m, s, tt.wantMinutes, tt.wantSeconds)
			}
		})
	}
}
