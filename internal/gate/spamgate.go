// Package gate implements the submission-time admission check: a sliding
// window rate limiter, a pattern/heuristic content scorer, and an IP
// reputation check composed into a single decision.
package gate

import (
	"context"
	"net/netip"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// Decision reason codes surfaced to the intake caller.
const (
	ReasonClean             = "clean"
	ReasonRateLimitExceeded = "rate_limit_exceeded"
	ReasonContentScore      = "content_score"
	ReasonSuspiciousIP      = "suspicious_ip"
	ReasonManualReview      = "manual_review"
)

// Decision is the structured admission verdict for one submission. No
// internal error detail crosses this boundary.
type Decision struct {
	Allowed bool
	Action  domain.GateAction
	Reason  string
	Details map[string]any
}

// SpamGate composes the rate limiter, content scorer and IP reputation
// check into one admission decision.
type SpamGate struct {
	rate   *RateGate
	scorer *ContentScorer
	logger *zap.Logger
}

// NewSpamGate constructs the composed gate.
func NewSpamGate(rate *RateGate, scorer *ContentScorer, logger *zap.Logger) *SpamGate {
	return &SpamGate{rate: rate, scorer: scorer, logger: logger}
}

// Decide runs the admission checks in order. A rate limit breach
// short-circuits to block; the IP check can only upgrade an allow to flag,
// never downgrade a stricter verdict.
func (g *SpamGate) Decide(ctx context.Context, sub domain.Submission) Decision {
	verdict := g.rate.Check(ctx, sub.Identifier)
	if !verdict.Allowed {
		details := map[string]any{"request_count": verdict.Count}
		if verdict.BlockUntil != nil {
			details["block_until"] = *verdict.BlockUntil
		}
		return Decision{
			Allowed: false,
			Action:  domain.GateActionBlock,
			Reason:  ReasonRateLimitExceeded,
			Details: details,
		}
	}

	score := g.scorer.Score(sub)
	action := score.Action
	reason := ReasonClean
	details := map[string]any{"score": score.Total}
	if len(score.Matched) > 0 {
		details["matched_patterns"] = score.Matched
	}
	if len(score.Signals) > 0 {
		details["heuristics"] = score.Signals
	}
	if action != domain.GateActionAllow {
		reason = ReasonContentScore
	}
	if verdict.Degraded {
		// Rate enforcement was unavailable; admit but mark for review.
		action = domain.StricterGateAction(action, domain.GateActionFlag)
		if reason == ReasonClean {
			reason = ReasonManualReview
		}
		details["rate_limit_degraded"] = true
	}

	if suspicious, ok := suspiciousIP(sub.SourceIP); !ok && sub.SourceIP != "" {
		// Unparseable source fails open, flagged for review.
		action = domain.StricterGateAction(action, domain.GateActionFlag)
		if reason == ReasonClean {
			reason = ReasonManualReview
		}
		details["source_ip_invalid"] = sub.SourceIP
	} else if suspicious {
		if action == domain.GateActionAllow {
			action = domain.GateActionFlag
			reason = ReasonSuspiciousIP
		}
		details["suspicious_ip"] = sub.SourceIP
	}

	decision := Decision{
		Allowed: action.Admits(),
		Action:  action,
		Reason:  reason,
		Details: details,
	}
	g.logger.Debug("admission decision",
		zap.String("identifier", sub.Identifier),
		zap.String("action", string(decision.Action)),
		zap.String("reason", decision.Reason),
		zap.Int("score", score.Total))
	return decision
}

// RateSweep drops idle rate limit entries; driven by the background worker.
func (g *SpamGate) RateSweep(ctx context.Context) (int, error) {
	return g.rate.Sweep(ctx)
}

// suspiciousIP reports whether the address sits in a private, loopback,
// link-local or unspecified range: a simplified proxy for "not a real
// external client". The second return is false when parsing fails.
func suspiciousIP(raw string) (bool, bool) {
	if raw == "" {
		return false, true
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return false, false
	}
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified(), true
}
