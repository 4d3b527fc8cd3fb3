package throttle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestGate_MinSpacing(t *testing.T) {
	g := NewGate(WithMinSpacing(50*time.Millisecond), WithCallTimeout(time.Second))
	defer g.Close()

	ctx := context.Background()
	var stamps []time.Time
	var mu sync.Mutex

	for i := 0; i < 3; i++ {
		err := g.Do(ctx, func(ctx context.Context) error {
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
			return nil
		})
		if err != nil {
			t.Fatalf("Do failed: %v", err)
		}
	}

	if len(stamps) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(stamps))
	}
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		if gap < 45*time.Millisecond {
			t.Errorf("calls %d and %d only %v apart, want >= 50ms", i-1, i, gap)
		}
	}
}

func TestGate_FIFOOrder(t *testing.T) {
	g := NewGate(WithMinSpacing(10*time.Millisecond), WithCallTimeout(time.Second))
	defer g.Close()

	ctx := context.Background()
	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	// Submit sequentially so queue order is deterministic, observe release order.
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Do(ctx, func(ctx context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("Do(%d) failed: %v", i, err)
			}
		}()
		// Give each goroutine time to enqueue before the next starts.
		time.Sleep(5 * time.Millisecond)
	}

	wg.Wait()

	for i, got := range order {
		if got != i {
			t.Fatalf("release order %v, want ascending", order)
		}
	}
}

func TestGate_Timeout(t *testing.T) {
	g := NewGate(WithMinSpacing(time.Millisecond), WithCallTimeout(30*time.Millisecond))
	defer g.Close()

	err := g.Do(context.Background(), func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
}

func TestGate_AdvancesAfterFailure(t *testing.T) {
	g := NewGate(WithMinSpacing(time.Millisecond), WithCallTimeout(20*time.Millisecond))
	defer g.Close()

	ctx := context.Background()

	_ = g.Do(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	// The gate must keep serving after a timed-out call.
	done := make(chan error, 1)
	go func() {
		done <- g.Do(ctx, func(ctx context.Context) error { return nil })
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("call after timeout failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("gate stalled after a timed-out call")
	}
}

func TestGate_CancelledWaiter(t *testing.T) {
	g := NewGate(WithMinSpacing(500*time.Millisecond), WithCallTimeout(time.Second))
	defer g.Close()

	// First call occupies the pacing slot.
	if err := g.Do(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("first Do failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Do(ctx, func(ctx context.Context) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGate_PerMinuteQuota(t *testing.T) {
	if testing.Short() {
		t.Skip("quota test sleeps")
	}

	g := NewGate(WithMinSpacing(time.Millisecond), WithPerMinuteQuota(3), WithCallTimeout(time.Second))
	defer g.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var served int
	for i := 0; i < 5; i++ {
		if err := g.Do(ctx, func(ctx context.Context) error { return nil }); err != nil {
			break
		}
		served++
	}

	// The fourth call must wait for the rolling minute, beyond our deadline.
	if served != 3 {
		t.Fatalf("expected quota to serve exactly 3 calls quickly, served %d", served)
	}
}
