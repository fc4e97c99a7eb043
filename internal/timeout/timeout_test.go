package timeout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func sleeper(d time.Duration, v int) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		select {
		case <-time.After(d):
			return v, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

func TestDoTimesOut(t *testing.T) {
	start := time.Now()
	_, err := Do(context.Background(), 100*time.Millisecond, sleeper(500*time.Millisecond, 1))
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}
	if elapsed >= 400*time.Millisecond {
		t.Errorf("returned after %v, want close to the 100ms deadline", elapsed)
	}
}

func TestDoReturnsResult(t *testing.T) {
	got, err := Do(context.Background(), 500*time.Millisecond, sleeper(100*time.Millisecond, 42))
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}

func TestDoPropagatesFailure(t *testing.T) {
	boom := errors.New("boom")
	_, err := Do(context.Background(), time.Second, func(context.Context) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestDoCancelsOperationOnTimeout(t *testing.T) {
	var cancelled atomic.Bool
	release := make(chan struct{})

	_, err := Do(context.Background(), 50*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		cancelled.Store(true)
		close(release)
		return 0, ctx.Err()
	})
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}

	select {
	case <-release:
	case <-time.After(time.Second):
		t.Fatal("operation never observed cancellation")
	}
	if !cancelled.Load() {
		t.Error("expected operation context to be cancelled")
	}
}

func TestDoIgnoresLateCompletion(t *testing.T) {
	var finished atomic.Bool
	_, err := Do(context.Background(), 20*time.Millisecond, func(context.Context) (int, error) {
		// Ignores cancellation on purpose.
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
		return 7, nil
	})
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}
	if finished.Load() {
		t.Error("Do waited for the operation after the deadline")
	}
}

func TestDoParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, time.Second, sleeper(time.Second, 1))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrTimedOut) {
		t.Error("parent cancellation should not be reported as a timeout")
	}
}

func TestDoNonPositiveDuration(t *testing.T) {
	called := false
	_, err := Do(context.Background(), 0, func(context.Context) (int, error) {
		called = true
		return 1, nil
	})
	if !errors.Is(err, ErrTimedOut) {
		t.Errorf("err = %v, want ErrTimedOut", err)
	}
	if called {
		t.Error("operation should not run with a zero deadline")
	}
}

func TestRun(t *testing.T) {
	if err := Run(context.Background(), time.Second, func(context.Context) error { return nil }); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
	err := Run(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, ErrTimedOut) {
		t.Errorf("err = %v, want ErrTimedOut", err)
	}
}
