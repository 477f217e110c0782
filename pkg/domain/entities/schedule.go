package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus represents the scheduling state of a ScheduleEntry
type EntryStatus int

const (
	Scheduled EntryStatus = iota
	Unschedulable
)

// String method for EntryStatus enum
func (s EntryStatus) String() string {
	switch s {
	case Scheduled:
		return "Scheduled"
	case Unschedulable:
		return "Unschedulable"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s EntryStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseEntryStatus is the inverse of String
func ParseEntryStatus(s string) (EntryStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scheduled":
		return Scheduled, nil
	case "unschedulable":
		return Unschedulable, nil
	default:
		return Scheduled, fmt.Errorf("unknown entry status %q", s)
	}
}

// ScheduleEntry is one persisted row of a production or material-preparation plan
type ScheduleEntry struct {
	PlanNo              string          `json:"plan_no"`
	SourceNo            string          `json:"source_no"`
	MaterialCode        MaterialCode    `json:"material_code"`
	ProcessName         string          `json:"process_name"`
	Workshop            string          `json:"workshop"`
	ScheduleDate        time.Time       `json:"schedule_date"`
	StandardWorkQuota   decimal.Decimal `json:"standard_work_quota"`
	PlannedQty          decimal.Decimal `json:"planned_qty"`
	RequiredWorkHours   decimal.Decimal `json:"required_work_hours"`
	DailyScheduledHours decimal.Decimal `json:"daily_scheduled_hours"`
	UnscheduledQty      decimal.Decimal `json:"unscheduled_qty"`
	CompletionDate      time.Time       `json:"completion_date"`
	Status              EntryStatus     `json:"status"`
	Level               int             `json:"level"`
	CreatedAt           time.Time       `json:"created_at"`
}

// Bucket returns the capacity bucket the entry is booked into
func (e ScheduleEntry) Bucket() BucketKey {
	return NewBucketKey(e.Workshop, e.ProcessName, e.ScheduleDate)
}

// BucketKey identifies a capacity bucket
type BucketKey struct {
	Workshop string
	Process  string
	Date     time.Time
}

// NewBucketKey builds a key with the date truncated to the calendar day
func NewBucketKey(workshop, process string, date time.Time) BucketKey {
	return BucketKey{
		Workshop: workshop,
		Process:  process,
		Date:     DateOf(date),
	}
}

// String renders the key for logs and lock names
func (k BucketKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.Workshop, k.Process, k.Date.Format("2006-01-02"))
}

// BucketState is the capacity state of a bucket
type BucketState int

const (
	BucketOpen BucketState = iota
	BucketPartiallyBooked
	BucketFull
)

// String method for BucketState enum
func (s BucketState) String() string {
	switch s {
	case BucketOpen:
		return "Open"
	case BucketPartiallyBooked:
		return "PartiallyBooked"
	case BucketFull:
		return "Full"
	default:
		return "Unknown"
	}
}

// StateOf derives the bucket state from booked and available hours.
// A non-positive available value means the bucket is unconstrained and never fills.
func StateOf(booked, available decimal.Decimal) BucketState {
	switch {
	case !booked.IsPositive():
		return BucketOpen
	case available.IsPositive() && booked.GreaterThanOrEqual(available):
		return BucketFull
	default:
		return BucketPartiallyBooked
	}
}
