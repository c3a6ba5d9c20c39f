package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeDeleter struct {
	mu      sync.Mutex
	calls   int
	deleted int64
	err     error
}

func (f *fakeDeleter) DeleteExpired(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.deleted, f.err
}

func (f *fakeDeleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestCleaner_SweepsImmediatelyAndOnTick(t *testing.T) {
	deleter := &fakeDeleter{deleted: 3}
	cleaner := NewCleaner(deleter, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cleaner.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for deleter.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 2 sweeps, got %d", deleter.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run should return once the context is cancelled")
	}
}

func TestCleaner_KeepsRunningAfterSweepError(t *testing.T) {
	deleter := &fakeDeleter{err: errors.New("connection reset")}
	cleaner := NewCleaner(deleter, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cleaner.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for deleter.callCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected sweeps to continue past errors, got %d", deleter.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestNewCleaner_DefaultsInterval(t *testing.T) {
	cleaner := NewCleaner(&fakeDeleter{}, 0)
	if cleaner.interval != time.Hour {
		t.Errorf("interval = %v, want %v", cleaner.interval, time.Hour)
	}
}
