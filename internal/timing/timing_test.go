package timing

import (
	"errors"
	"testing"
	"time"
)

func fakeClock(t *testing.T, step time.Duration) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	prev := now
	now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * step)
	}
	t.Cleanup(func() { now = prev })
}

func TestMeasureReturnsResultAndElapsed(t *testing.T) {
	fakeClock(t, 3*time.Second)
	result, elapsed := Measure(func() int { return 42 })
	if result != 42 {
		t.Fatalf("unexpected result: %d", result)
	}
	if elapsed != 3*time.Second {
		t.Fatalf("unexpected elapsed: %v", elapsed)
	}
}

func TestMeasureErrReportsDurationOnFailure(t *testing.T) {
	fakeClock(t, 1500*time.Millisecond)
	boom := errors.New("boom")
	result, elapsed, err := MeasureErr(func() (string, error) { return "partial", boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected error to pass through, got %v", err)
	}
	if result != "partial" {
		t.Fatalf("unexpected result: %q", result)
	}
	if elapsed != 1500*time.Millisecond {
		t.Fatalf("unexpected elapsed: %v", elapsed)
	}
}

func TestMeasureUsesWallClock(t *testing.T) {
	_, elapsed := Measure(func() struct{} {
		time.Sleep(5 * time.Millisecond)
		return struct{}{}
	})
	if elapsed < 5*time.Millisecond {
		t.Fatalf("expected at least 5ms, got %v", elapsed)
	}
}
