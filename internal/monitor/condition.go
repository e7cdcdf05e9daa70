package monitor

import (
	"strconv"
	"strings"
)

// evalCondition evaluates a rule condition string against the window rates.
//
// Supported expressions (field operator value):
//
//	abstain_pct > 20
//	events_pm < 100
//	events > 0
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is
// unknown.
func evalCondition(cond string, s windowStats) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}

	var v float64
	switch field {
	case "abstain_pct":
		v = s.abstainPct
	case "events_pm":
		v = s.eventsPM
	case "events":
		v = float64(s.events)
	case "abstained":
		v = float64(s.abstained)
	default:
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
