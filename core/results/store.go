package results

import (
	"context"
	"time"

	"github.com/kilianp07/cellage/core/battery"
)

// Record is one check-up of one experiment run.
type Record struct {
	RunID     string  `json:"run_id"`
	Condition string  `json:"condition"`
	AgeType   string  `json:"age_type"`
	Temp      float64 `json:"temperature"`
	SoCMin    float64 `json:"soc_min"`
	SoCMax    float64 `json:"soc_max"`
	IChg      float64 `json:"i_chg"`
	IDischg   float64 `json:"i_dischg"`
	// Profile is the profile index, -1 when the condition has none.
	Profile      int                `json:"profile"`
	Index        int                `json:"index"`
	Time         time.Time          `json:"time"`
	CapRemaining float64            `json:"cap_remaining"`
	MeasuredAh   float64            `json:"measured_ah"`
	Aging        battery.AgingState `json:"aging"`
}

// Query filters records. Zero fields match everything.
type Query struct {
	RunID     string
	Condition string
	AgeType   string
	Start     time.Time
	End       time.Time
}

// Match reports whether r passes the filter.
func (q Query) Match(r Record) bool {
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.Condition != "" && r.Condition != q.Condition {
		return false
	}
	if q.AgeType != "" && r.AgeType != q.AgeType {
		return false
	}
	if !q.Start.IsZero() && r.Time.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Time.After(q.End) {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
