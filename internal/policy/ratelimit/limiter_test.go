package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestPacerSpacesConsecutiveWaits(t *testing.T) {
	p := New(Config{Interval: 100 * time.Millisecond})

	ctx := context.Background()

	// The bucket starts full, so the first wait is immediate.
	start := time.Now()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Logf("warning: first wait took %v", time.Since(start))
	}

	// The second wait has to sit out the refill interval.
	start = time.Now()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dur := time.Since(start); dur < 80*time.Millisecond {
		t.Errorf("expected wait ~100ms, got %v", dur)
	}
}

func TestPacerZeroIntervalDoesNotBlock(t *testing.T) {
	p := New(Config{})

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if dur := time.Since(start); dur > 50*time.Millisecond {
		t.Errorf("unpaced waits took %v", dur)
	}
}

func TestPacerJitterStaysWithinBound(t *testing.T) {
	p := New(Config{Jitter: 30 * time.Millisecond})

	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dur := time.Since(start); dur > 200*time.Millisecond {
		t.Errorf("jittered wait took %v, want under the jitter bound", dur)
	}
}

func TestPacerWaitHonorsCancellation(t *testing.T) {
	p := New(Config{Interval: time.Hour})

	ctx := context.Background()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := p.Wait(cancelled); err == nil {
		t.Fatal("expected an error from a cancelled wait")
	}
}
