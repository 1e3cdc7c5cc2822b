package throttle

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestThrottler_SpacesSuccessiveCalls(t *testing.T) {
	interval := 40 * time.Millisecond
	th := New(interval, nil)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := th.Wait(ctx, "details"); err != nil {
			t.Fatalf("Wait() failed: %v", err)
		}
	}
	elapsed := time.Since(start)

	// first call passes immediately, the next two wait one interval each
	if elapsed < 2*interval-5*time.Millisecond {
		t.Errorf("3 waits took %v, want at least %v", elapsed, 2*interval)
	}
}

func TestThrottler_SharedAcrossEndpoints(t *testing.T) {
	interval := 40 * time.Millisecond
	th := New(interval, nil)
	ctx := context.Background()

	if err := th.Wait(ctx, "details"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := th.Wait(ctx, "polygon"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < interval-5*time.Millisecond {
		t.Errorf("call to a different endpoint waited %v, want about %v", elapsed, interval)
	}
}

func TestThrottler_IntervalCountsFromDone(t *testing.T) {
	interval := 40 * time.Millisecond
	th := New(interval, nil)
	ctx := context.Background()

	var finished time.Time
	for i := 0; i < 3; i++ {
		if err := th.Wait(ctx, "polygon"); err != nil {
			t.Fatalf("Wait() failed: %v", err)
		}
		if i > 0 {
			if gap := time.Since(finished); gap < interval-5*time.Millisecond {
				t.Errorf("call %d started %v after the previous one finished, want at least %v", i+1, gap, interval)
			}
		}
		// slower than the interval
		time.Sleep(2 * interval)
		th.Done("polygon")
		finished = time.Now()
	}
}

func TestThrottler_DefaultInterval(t *testing.T) {
	if got := New(0, nil).Interval(); got != DefaultInterval {
		t.Errorf("Interval() = %v, want %v", got, DefaultInterval)
	}
}

func TestThrottler_ContextCancelled(t *testing.T) {
	th := New(time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())

	if err := th.Wait(ctx, "details"); err != nil {
		t.Fatalf("first Wait() failed: %v", err)
	}
	cancel()
	if err := th.Wait(ctx, "details"); err == nil {
		t.Fatal("Wait() after cancel succeeded, want error")
	}
}

func TestNop(t *testing.T) {
	var p Pacer = Nop{}
	if err := p.Wait(context.Background(), "x"); err != nil {
		t.Errorf("Nop.Wait() = %v, want nil", err)
	}
	p.Done("x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Nop.Wait() on cancelled ctx = %v, want context.Canceled", err)
	}
}
