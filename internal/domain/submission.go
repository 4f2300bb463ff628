package domain

import (
	"regexp"
	"time"
)

// PatternScope names the submission field a spam pattern inspects.
type PatternScope string

const (
	PatternScopeEmail   PatternScope = "email"
	PatternScopeSubject PatternScope = "subject"
	PatternScopeBody    PatternScope = "body"
)

// GateAction is the admission verdict for an inbound submission.
type GateAction string

const (
	GateActionAllow      GateAction = "allow"
	GateActionFlag       GateAction = "flag"
	GateActionQuarantine GateAction = "quarantine"
	GateActionBlock      GateAction = "block"
)

var gateSeverity = map[GateAction]int{
	GateActionAllow:      0,
	GateActionFlag:       1,
	GateActionQuarantine: 2,
	GateActionBlock:      3,
}

// StricterGateAction returns whichever of the two verdicts is more severe.
func StricterGateAction(a, b GateAction) GateAction {
	if gateSeverity[b] > gateSeverity[a] {
		return b
	}
	return a
}

// Admits reports whether a verdict lets the submission through.
func (a GateAction) Admits() bool {
	return a == GateActionAllow || a == GateActionFlag
}

// SpamPattern is static scoring configuration, immutable at runtime.
type SpamPattern struct {
	Pattern   *regexp.Regexp
	AppliesTo PatternScope
	Action    GateAction
	Weight    int
}

// Submission is an inbound ticket creation request before admission.
type Submission struct {
	Identifier string
	Email      string
	Subject    string
	Body       string
	SourceIP   string
	Department string
	Priority   TicketPriority
	Type       TicketType
	Category   string
}

// RateLimitEntry is per-identifier sliding window state, owned by RateGate.
type RateLimitEntry struct {
	Identifier  string
	Count       int
	WindowStart time.Time
	LastRequest time.Time
	Blocked     bool
	BlockUntil  *time.Time
}
