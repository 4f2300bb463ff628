package gate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/clock"
	"github.com/spec-kit/ticket-routing/internal/domain"
)

// RateVerdict is the outcome of one rate limit check.
type RateVerdict struct {
	Allowed    bool
	Count      int
	BlockUntil *time.Time
	// Degraded marks a fail-open decision taken because the store errored.
	Degraded bool
}

// RateGate enforces a sliding request window per submitter identity.
type RateGate struct {
	// mu serializes the read-modify-write on window state. A single gate
	// lock is the first scaling bottleneck; shard gates per identifier
	// prefix before this shows up in intake latency.
	mu          sync.Mutex
	store       RateLimitStore
	clock       clock.Clock
	logger      *zap.Logger
	maxRequests int
	window      time.Duration
	idleTTL     time.Duration
}

// RateGateConfig tunes a RateGate.
type RateGateConfig struct {
	MaxRequests int
	Window      time.Duration
	IdleTTL     time.Duration
}

// NewRateGate constructs the gate, applying defaults for zero values.
func NewRateGate(store RateLimitStore, clk clock.Clock, logger *zap.Logger, cfg RateGateConfig) *RateGate {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 24 * time.Hour
	}
	return &RateGate{
		store:       store,
		clock:       clk,
		logger:      logger,
		maxRequests: cfg.MaxRequests,
		window:      cfg.Window,
		idleTTL:     cfg.IdleTTL,
	}
}

// Check records one request for identifier and reports whether it is within
// the window. Store failures fail open: ticket intake availability wins over
// strict enforcement.
func (g *RateGate) Check(ctx context.Context, identifier string) RateVerdict {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()

	entry, err := g.store.Get(ctx, identifier)
	if err != nil {
		g.logger.Warn("rate limit store degraded, allowing request",
			zap.String("identifier", identifier), zap.Error(err))
		return RateVerdict{Allowed: true, Degraded: true}
	}

	if entry == nil {
		entry = &domain.RateLimitEntry{
			Identifier:  identifier,
			Count:       1,
			WindowStart: now,
			LastRequest: now,
		}
		return g.persist(ctx, entry, RateVerdict{Allowed: true, Count: 1})
	}

	entry.LastRequest = now

	if entry.Blocked {
		if entry.BlockUntil != nil && now.Before(*entry.BlockUntil) {
			verdict := RateVerdict{Allowed: false, Count: entry.Count, BlockUntil: entry.BlockUntil}
			return g.persist(ctx, entry, verdict)
		}
		// Block expired; start a fresh window.
		entry.Blocked = false
		entry.BlockUntil = nil
		entry.Count = 0
		entry.WindowStart = now
	}

	if now.Sub(entry.WindowStart) >= g.window {
		entry.Count = 0
		entry.WindowStart = now
	}

	entry.Count++
	if entry.Count > g.maxRequests {
		until := now.Add(g.window)
		entry.Blocked = true
		entry.BlockUntil = &until
		g.logger.Info("rate limit exceeded",
			zap.String("identifier", identifier),
			zap.Int("count", entry.Count),
			zap.Time("block_until", until))
		return g.persist(ctx, entry, RateVerdict{Allowed: false, Count: entry.Count, BlockUntil: &until})
	}

	return g.persist(ctx, entry, RateVerdict{Allowed: true, Count: entry.Count})
}

// Sweep drops entries idle for longer than the configured TTL.
func (g *RateGate) Sweep(ctx context.Context) (int, error) {
	idleBefore := g.clock.Now().Add(-g.idleTTL)
	dropped, err := g.store.Sweep(ctx, idleBefore)
	if err != nil {
		g.logger.Warn("rate limit sweep failed", zap.Error(err))
		return 0, err
	}
	if dropped > 0 {
		g.logger.Debug("rate limit entries swept", zap.Int("dropped", dropped))
	}
	return dropped, nil
}

func (g *RateGate) persist(ctx context.Context, entry *domain.RateLimitEntry, verdict RateVerdict) RateVerdict {
	if err := g.store.Put(ctx, entry); err != nil {
		g.logger.Warn("rate limit store degraded on write",
			zap.String("identifier", entry.Identifier), zap.Error(err))
		verdict.Allowed = true
		verdict.Degraded = true
	}
	return verdict
}
