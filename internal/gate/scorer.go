package gate

import (
	"strings"
	"unicode"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// Heuristic weights. Each structural signal adds a fixed amount on top of
// pattern scores.
const (
	weightSpecialCharRatio = 2
	weightUppercaseRatio   = 2
	weightRepeatedRun      = 2

	specialCharRatioLimit = 0.10
	uppercaseRatioLimit   = 0.50
	uppercaseMinBodyLen   = 20
	repeatedRunLength     = 5
)

// ScoreThresholds map a total score to an admission verdict.
type ScoreThresholds struct {
	Flag       int
	Quarantine int
	Block      int
}

// DefaultScoreThresholds per the admission contract.
var DefaultScoreThresholds = ScoreThresholds{Flag: 3, Quarantine: 6, Block: 10}

// ContentScore is the result of scoring one submission.
type ContentScore struct {
	Total   int
	Action  domain.GateAction
	Matched []string
	Signals []string
}

// ContentScorer is a pure pattern/heuristic scorer over submission content.
type ContentScorer struct {
	patterns   []domain.SpamPattern
	thresholds ScoreThresholds
}

// NewContentScorer builds a scorer over a static pattern set.
func NewContentScorer(patterns []domain.SpamPattern, thresholds ScoreThresholds) *ContentScorer {
	if thresholds.Block <= 0 {
		thresholds = DefaultScoreThresholds
	}
	return &ContentScorer{patterns: patterns, thresholds: thresholds}
}

// Score evaluates patterns and heuristics against the submission. The
// threshold verdict can be raised, never lowered, by the strictest action
// among matched patterns.
func (s *ContentScorer) Score(sub domain.Submission) ContentScore {
	score := ContentScore{Action: domain.GateActionAllow}
	patternFloor := domain.GateActionAllow

	for _, pattern := range s.patterns {
		subject := s.fieldFor(sub, pattern.AppliesTo)
		if subject == "" {
			continue
		}
		if pattern.Pattern.MatchString(subject) {
			score.Total += pattern.Weight
			score.Matched = append(score.Matched, pattern.Pattern.String())
			patternFloor = domain.StricterGateAction(patternFloor, pattern.Action)
		}
	}

	if ratio := specialCharRatio(sub.Body); ratio > specialCharRatioLimit {
		score.Total += weightSpecialCharRatio
		score.Signals = append(score.Signals, "special_char_ratio")
	}
	if len(sub.Body) > uppercaseMinBodyLen && uppercaseRatio(sub.Body) > uppercaseRatioLimit {
		score.Total += weightUppercaseRatio
		score.Signals = append(score.Signals, "uppercase_ratio")
	}
	if hasRepeatedRun(sub.Body, repeatedRunLength) {
		score.Total += weightRepeatedRun
		score.Signals = append(score.Signals, "repeated_characters")
	}

	score.Action = domain.StricterGateAction(s.actionForTotal(score.Total), patternFloor)
	return score
}

func (s *ContentScorer) actionForTotal(total int) domain.GateAction {
	switch {
	case total >= s.thresholds.Block:
		return domain.GateActionBlock
	case total >= s.thresholds.Quarantine:
		return domain.GateActionQuarantine
	case total >= s.thresholds.Flag:
		return domain.GateActionFlag
	}
	return domain.GateActionAllow
}

func (s *ContentScorer) fieldFor(sub domain.Submission, scope domain.PatternScope) string {
	switch scope {
	case domain.PatternScopeEmail:
		return sub.Email
	case domain.PatternScopeSubject:
		return sub.Subject
	case domain.PatternScopeBody:
		return sub.Body
	}
	return ""
}

func specialCharRatio(body string) float64 {
	if len(body) == 0 {
		return 0
	}
	special := 0
	total := 0
	for _, r := range body {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			continue
		}
		special++
	}
	if total == 0 {
		return 0
	}
	return float64(special) / float64(total)
}

func uppercaseRatio(body string) float64 {
	letters := 0
	upper := 0
	for _, r := range body {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}

func hasRepeatedRun(body string, minRun int) bool {
	if minRun <= 1 {
		return len(body) > 0
	}
	var prev rune
	run := 0
	for _, r := range strings.ToLower(body) {
		if r == prev {
			run++
			if run >= minRun {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}
