package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// EvalCondition evaluates one condition against the fact snapshot. A
// missing fact path satisfies only the negated operators; it never produces
// a positive match.
func EvalCondition(cond domain.Condition, facts map[string]any) bool {
	fact, found := Lookup(facts, cond.Field)
	if !found {
		switch cond.Operator {
		case domain.OperatorNotEquals, domain.OperatorNotContains, domain.OperatorNotIn:
			return true
		}
		return false
	}

	switch cond.Operator {
	case domain.OperatorEquals:
		return strictEquals(fact, cond.Value)
	case domain.OperatorNotEquals:
		return !strictEquals(fact, cond.Value)
	case domain.OperatorContains:
		return containsFold(fact, cond.Value)
	case domain.OperatorNotContains:
		return !containsFold(fact, cond.Value)
	case domain.OperatorIn:
		return inList(fact, cond.Value)
	case domain.OperatorNotIn:
		list, ok := asList(cond.Value)
		if !ok {
			return false
		}
		for _, item := range list {
			if strictEquals(fact, item) {
				return false
			}
		}
		return true
	case domain.OperatorGreaterThan:
		left, right := toNumber(fact), toNumber(cond.Value)
		// NaN comparisons are always false: a non-numeric field against a
		// numeric operator must never match.
		return left > right
	case domain.OperatorLessThan:
		left, right := toNumber(fact), toNumber(cond.Value)
		return left < right
	}
	return false
}

func strictEquals(a, b any) bool {
	if na, okA := asExactNumber(a); okA {
		if nb, okB := asExactNumber(b); okB {
			return na == nb
		}
		return false
	}
	if sa, okA := a.(string); okA {
		sb, okB := b.(string)
		return okB && sa == sb
	}
	if ba, okA := a.(bool); okA {
		bb, okB := b.(bool)
		return okB && ba == bb
	}
	if ta, okA := a.(time.Time); okA {
		tb, okB := b.(time.Time)
		return okB && ta.Equal(tb)
	}
	return false
}

func containsFold(fact, value any) bool {
	haystack := strings.ToLower(coerceString(fact))
	needle := strings.ToLower(coerceString(value))
	if needle == "" {
		return false
	}
	return strings.Contains(haystack, needle)
}

func inList(fact, value any) bool {
	list, ok := asList(value)
	if !ok {
		return false
	}
	for _, item := range list {
		if strictEquals(fact, item) {
			return true
		}
	}
	return false
}

func asList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		list := make([]any, len(v))
		for i, s := range v {
			list[i] = s
		}
		return list, true
	}
	return nil, false
}

func asExactNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// toNumber mirrors blind numeric coercion: anything non-numeric becomes
// NaN, and NaN ordering comparisons are false.
func toNumber(value any) float64 {
	if n, ok := asExactNumber(value); ok {
		return n
	}
	if s, ok := value.(string); ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil {
			return parsed
		}
	}
	return math.NaN()
}

func coerceString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	}
	return fmt.Sprint(value)
}
