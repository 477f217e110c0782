package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// IntervalUnit is the unit of a process interval
type IntervalUnit string

const (
	IntervalHours IntervalUnit = "hours"
	IntervalDays  IntervalUnit = "days"
)

// ParseIntervalUnit accepts "hour(s)" and "day(s)" in any case
func ParseIntervalUnit(s string) (IntervalUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hour", "hours", "h":
		return IntervalHours, nil
	case "day", "days", "d":
		return IntervalDays, nil
	default:
		return "", fmt.Errorf("unknown interval unit %q", s)
	}
}

// ProcessIntervalRule is the minimum offset between a predecessor process finishing
// and its successor process needing the output
type ProcessIntervalRule struct {
	FromProcess   string
	ToProcess     string
	IntervalValue decimal.Decimal
	IntervalUnit  IntervalUnit
}

// NewProcessIntervalRule creates a validated ProcessIntervalRule
func NewProcessIntervalRule(from, to string, value decimal.Decimal, unit IntervalUnit) (*ProcessIntervalRule, error) {
	if from == "" || to == "" {
		return nil, fmt.Errorf("interval rule requires both processes, got %q -> %q", from, to)
	}
	if value.IsNegative() {
		return nil, fmt.Errorf("interval value cannot be negative, got %s", value)
	}
	if unit != IntervalHours && unit != IntervalDays {
		return nil, fmt.Errorf("unknown interval unit %q", unit)
	}
	return &ProcessIntervalRule{
		FromProcess:   from,
		ToProcess:     to,
		IntervalValue: value,
		IntervalUnit:  unit,
	}, nil
}

// Duration converts the interval to a time.Duration
func (r ProcessIntervalRule) Duration() time.Duration {
	unit := time.Hour
	if r.IntervalUnit == IntervalDays {
		unit = 24 * time.Hour
	}
	return time.Duration(r.IntervalValue.Mul(decimal.NewFromInt(int64(unit))).IntPart())
}

// ProcessCapacity is the capacity configuration of one process in one workshop
type ProcessCapacity struct {
	Workshop            string
	Process             string
	DailyAvailableHours decimal.Decimal
	StandardWorkQuota   decimal.Decimal
}

// Unconstrained reports whether the process has no daily hour limit
func (c ProcessCapacity) Unconstrained() bool {
	return !c.DailyAvailableHours.IsPositive()
}
