package entities

import (
	"fmt"
	"strings"
	"time"
)

// MaterialCode represents a unique material identifier
type MaterialCode string

// SourceType represents how a material is replenished
type SourceType int

const (
	Make SourceType = iota
	Buy
	Outsource
)

// String method for SourceType enum
func (s SourceType) String() string {
	switch s {
	case Make:
		return "Make"
	case Buy:
		return "Buy"
	case Outsource:
		return "Outsource"
	default:
		return "Unknown"
	}
}

// ParseSourceType converts a textual source type (case-insensitive) to a SourceType
func ParseSourceType(s string) (SourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "make":
		return Make, nil
	case "buy":
		return Buy, nil
	case "outsource":
		return Outsource, nil
	default:
		return Make, fmt.Errorf("unknown source type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (s SourceType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *SourceType) UnmarshalText(text []byte) error {
	parsed, err := ParseSourceType(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Material is the material master reference record
type Material struct {
	Code MaterialCode
	Name string
	Unit string
}

// NewMaterial creates a validated Material
func NewMaterial(code MaterialCode, name, unit string) (*Material, error) {
	if string(code) == "" {
		return nil, fmt.Errorf("material code cannot be empty")
	}
	return &Material{
		Code: code,
		Name: name,
		Unit: unit,
	}, nil
}

// DateOf returns the calendar date of t (as seen in t's own location) as midnight UTC,
// so dates from different locations compare and key equally
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
