package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/clock"
	"github.com/spec-kit/ticket-routing/internal/config"
	"github.com/spec-kit/ticket-routing/internal/domain"
)

func newTestSpamGate(clk clock.Clock, maxRequests int) *SpamGate {
	rate := NewRateGate(NewMemoryRateLimitStore(), clk, zap.NewNop(), RateGateConfig{
		MaxRequests: maxRequests,
		Window:      time.Hour,
	})
	scorer := NewContentScorer(config.DefaultSpamPatterns(), DefaultScoreThresholds)
	return NewSpamGate(rate, scorer, zap.NewNop())
}

func TestDecideCleanSubmission(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	gate := newTestSpamGate(clk, 5)

	decision := gate.Decide(context.Background(), domain.Submission{
		Identifier: "alice",
		Email:      "alice@corp.example",
		Subject:    "VPN connection drops",
		Body:       "My VPN session disconnects roughly every ten minutes since the update.",
		SourceIP:   "203.0.113.7",
	})
	if !decision.Allowed {
		t.Fatalf("decision = %+v, want allowed", decision)
	}
	if decision.Action != domain.GateActionAllow {
		t.Fatalf("action = %q, want allow", decision.Action)
	}
	if decision.Reason != ReasonClean {
		t.Fatalf("reason = %q, want clean", decision.Reason)
	}
}

func TestDecideRateLimitShortCircuits(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	gate := newTestSpamGate(clk, 1)
	ctx := context.Background()

	// Spam content on the second request must not change the reason: the
	// rate verdict wins before scoring runs.
	gate.Decide(ctx, domain.Submission{Identifier: "bob"})
	decision := gate.Decide(ctx, domain.Submission{
		Identifier: "bob",
		Body:       "congratulations you have won money",
	})
	if decision.Allowed {
		t.Fatal("rate limited submission allowed, want denied")
	}
	if decision.Action != domain.GateActionBlock {
		t.Fatalf("action = %q, want block", decision.Action)
	}
	if decision.Reason != ReasonRateLimitExceeded {
		t.Fatalf("reason = %q, want rate_limit_exceeded", decision.Reason)
	}
}

func TestDecideContentScoreBlocks(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	gate := newTestSpamGate(clk, 5)

	decision := gate.Decide(context.Background(), domain.Submission{
		Identifier: "carol",
		Body:       "congratulations you have won money",
	})
	if decision.Allowed {
		t.Fatal("spam submission allowed, want denied")
	}
	if decision.Action != domain.GateActionBlock {
		t.Fatalf("action = %q, want block", decision.Action)
	}
	if decision.Reason != ReasonContentScore {
		t.Fatalf("reason = %q, want content_score", decision.Reason)
	}
}

func TestDecideSuspiciousIPUpgradesAllowOnly(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	gate := newTestSpamGate(clk, 5)
	ctx := context.Background()

	flagged := gate.Decide(ctx, domain.Submission{
		Identifier: "dave",
		Subject:    "laptop battery",
		Body:       "battery drains within an hour",
		SourceIP:   "10.0.0.5",
	})
	if !flagged.Allowed {
		t.Fatal("suspicious-source submission denied, want flagged but admitted")
	}
	if flagged.Action != domain.GateActionFlag {
		t.Fatalf("action = %q, want flag", flagged.Action)
	}
	if flagged.Reason != ReasonSuspiciousIP {
		t.Fatalf("reason = %q, want suspicious_ip", flagged.Reason)
	}

	// A stricter content verdict is never downgraded by the IP check.
	blocked := gate.Decide(ctx, domain.Submission{
		Identifier: "eve",
		Body:       "congratulations you have won money",
		SourceIP:   "127.0.0.1",
	})
	if blocked.Action != domain.GateActionBlock {
		t.Fatalf("action = %q, want block kept", blocked.Action)
	}
	if blocked.Reason != ReasonContentScore {
		t.Fatalf("reason = %q, want content_score kept", blocked.Reason)
	}
}

func TestDecideUnparseableIPFailsOpenFlagged(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	gate := newTestSpamGate(clk, 5)

	decision := gate.Decide(context.Background(), domain.Submission{
		Identifier: "frank",
		Subject:    "screen flicker",
		Body:       "external monitor flickers on the dock",
		SourceIP:   "not-an-ip",
	})
	if !decision.Allowed {
		t.Fatal("submission with bad source denied, want admitted for review")
	}
	if decision.Action != domain.GateActionFlag {
		t.Fatalf("action = %q, want flag", decision.Action)
	}
	if decision.Reason != ReasonManualReview {
		t.Fatalf("reason = %q, want manual_review", decision.Reason)
	}
}

func TestDecideDegradedRateStoreFlagsForReview(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	rate := NewRateGate(&failingRateStore{getErr: errors.New("down")}, clk, zap.NewNop(), RateGateConfig{})
	scorer := NewContentScorer(config.DefaultSpamPatterns(), DefaultScoreThresholds)
	gate := NewSpamGate(rate, scorer, zap.NewNop())

	decision := gate.Decide(context.Background(), domain.Submission{
		Identifier: "grace",
		Subject:    "badge reader",
		Body:       "badge reader at the east entrance rejects my card",
	})
	if !decision.Allowed {
		t.Fatal("degraded decision denied, want admitted")
	}
	if decision.Action != domain.GateActionFlag {
		t.Fatalf("action = %q, want flag", decision.Action)
	}
	if decision.Reason != ReasonManualReview {
		t.Fatalf("reason = %q, want manual_review", decision.Reason)
	}
}
