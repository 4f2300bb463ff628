package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/clock"
	"github.com/spec-kit/ticket-routing/internal/domain"
)

type failingRateStore struct {
	getErr error
	putErr error
}

func (f *failingRateStore) Get(ctx context.Context, identifier string) (*domain.RateLimitEntry, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return nil, nil
}

func (f *failingRateStore) Put(ctx context.Context, entry *domain.RateLimitEntry) error {
	return f.putErr
}

func (f *failingRateStore) Sweep(ctx context.Context, idleBefore time.Time) (int, error) {
	return 0, nil
}

func newTestRateGate(clk clock.Clock, max int, window time.Duration) *RateGate {
	return NewRateGate(NewMemoryRateLimitStore(), clk, zap.NewNop(), RateGateConfig{
		MaxRequests: max,
		Window:      window,
	})
}

func TestRateGateDeniesSixthRequest(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	gate := newTestRateGate(clk, 5, time.Hour)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		verdict := gate.Check(ctx, "user@example.com")
		if !verdict.Allowed {
			t.Fatalf("request %d denied, want allowed", i)
		}
		if verdict.Count != i {
			t.Fatalf("request %d count = %d, want %d", i, verdict.Count, i)
		}
	}

	sixth := gate.Check(ctx, "user@example.com")
	if sixth.Allowed {
		t.Fatal("sixth request allowed, want denied")
	}
	if sixth.BlockUntil == nil {
		t.Fatal("denied verdict missing block expiry")
	}
	if want := clk.Now().Add(time.Hour); !sixth.BlockUntil.Equal(want) {
		t.Fatalf("block until = %v, want %v", sixth.BlockUntil, want)
	}

	// Still blocked before the expiry passes.
	clk.Advance(30 * time.Minute)
	if verdict := gate.Check(ctx, "user@example.com"); verdict.Allowed {
		t.Fatal("request during block allowed, want denied")
	}

	// A different identifier is unaffected.
	if verdict := gate.Check(ctx, "other@example.com"); !verdict.Allowed {
		t.Fatal("other identifier denied, want allowed")
	}
}

func TestRateGateBlockExpiryStartsFreshWindow(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	gate := newTestRateGate(clk, 2, time.Hour)
	ctx := context.Background()

	gate.Check(ctx, "burst")
	gate.Check(ctx, "burst")
	if verdict := gate.Check(ctx, "burst"); verdict.Allowed {
		t.Fatal("third request allowed, want denied")
	}

	clk.Advance(time.Hour + time.Minute)
	verdict := gate.Check(ctx, "burst")
	if !verdict.Allowed {
		t.Fatal("request after block expiry denied, want allowed")
	}
	if verdict.Count != 1 {
		t.Fatalf("count after block expiry = %d, want 1", verdict.Count)
	}
}

func TestRateGateWindowExpiryResetsCount(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	gate := newTestRateGate(clk, 5, time.Hour)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		gate.Check(ctx, "steady")
	}
	clk.Advance(time.Hour)
	verdict := gate.Check(ctx, "steady")
	if !verdict.Allowed {
		t.Fatal("request in new window denied, want allowed")
	}
	if verdict.Count != 1 {
		t.Fatalf("count in new window = %d, want 1", verdict.Count)
	}
}

func TestRateGateFailsOpenOnStoreErrors(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	reads := NewRateGate(&failingRateStore{getErr: errors.New("down")}, clk, zap.NewNop(), RateGateConfig{})
	verdict := reads.Check(ctx, "anyone")
	if !verdict.Allowed || !verdict.Degraded {
		t.Fatalf("verdict on read failure = %+v, want allowed degraded", verdict)
	}

	writes := NewRateGate(&failingRateStore{putErr: errors.New("down")}, clk, zap.NewNop(), RateGateConfig{})
	verdict = writes.Check(ctx, "anyone")
	if !verdict.Allowed || !verdict.Degraded {
		t.Fatalf("verdict on write failure = %+v, want allowed degraded", verdict)
	}
}

func TestRateGateSweepDropsIdleEntries(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	store := NewMemoryRateLimitStore()
	gate := NewRateGate(store, clk, zap.NewNop(), RateGateConfig{IdleTTL: time.Hour})
	ctx := context.Background()

	gate.Check(ctx, "stale")
	clk.Advance(30 * time.Minute)
	gate.Check(ctx, "fresh")
	clk.Advance(45 * time.Minute)

	dropped, err := gate.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}

	entry, err := store.Get(ctx, "fresh")
	if err != nil || entry == nil {
		t.Fatalf("fresh entry gone after sweep (entry=%v err=%v)", entry, err)
	}
}
