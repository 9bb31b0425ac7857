package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
	if !clock.Now().Equal(clock.Current()) {
		t.Fatalf("a clock without step must not move")
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2023, time.August, 23, 9, 0, 0, 0, time.UTC)
	clock := NewClock(start)

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}

	clock.Set(start.Add(2 * time.Hour))
	if got := clock.Current(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected %v, got %v", start.Add(2*time.Hour), got)
	}
}

func TestTickingClock(t *testing.T) {
	start := time.Date(2023, time.August, 1, 0, 0, 0, 0, time.UTC)
	nowFn := NewTickingClock(start, time.Second).NowFunc()

	first, second := nowFn(), nowFn()
	if !first.Equal(start) {
		t.Fatalf("expected first reading %v, got %v", start, first)
	}
	if !second.Equal(start.Add(time.Second)) {
		t.Fatalf("expected second reading one step later, got %v", second)
	}
}
