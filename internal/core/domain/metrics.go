package domain

import "time"

// Trend describes how a metric moved relative to its previous snapshot. A
// trend is only ever derived by comparison, never stored independently of
// the value it describes.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// DeriveTrend compares a fresh value against the previously cached one.
func DeriveTrend(previous, current float64) Trend {
	switch {
	case current > previous:
		return TrendUp
	case current < previous:
		return TrendDown
	default:
		return TrendNeutral
	}
}

type Trends struct {
	PeopleInStore  Trend `json:"people_in_store"`
	ConversionRate Trend `json:"conversion_rate"`
	AverageTime    Trend `json:"average_time"`
}

func NeutralTrends() Trends {
	return Trends{
		PeopleInStore:  TrendNeutral,
		ConversionRate: TrendNeutral,
		AverageTime:    TrendNeutral,
	}
}

type PeakHour struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// LiveMetrics is the cached aggregate the dashboard reads. It is mutated by
// both poll refreshes and push-event merges; readers always get a copy.
type LiveMetrics struct {
	PeopleInStore   int       `json:"people_in_store"`
	ConversionRate  float64   `json:"conversion_rate"` // percent, 0-100
	AverageTime     float64   `json:"average_time"`    // minutes
	ActiveEmployees int       `json:"active_employees"`
	TotalToday      int       `json:"total_today"`
	PeakHour        *PeakHour `json:"peak_hour"`
	Trends          Trends    `json:"trends"`
}

// ZeroMetrics is the render-safe fallback used when a fetch fails: all-zero
// values, no peak hour, neutral trends.
func ZeroMetrics() LiveMetrics {
	return LiveMetrics{Trends: NeutralTrends()}
}

// FlowPoint is one hourly bucket of the customer/employee flow series.
// Total is always recomputed as Customers+Employees, never set directly.
type FlowPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Hour      string    `json:"hour"`
	Customers int       `json:"customers"`
	Employees int       `json:"employees"`
	Total     int       `json:"total"`
}

// TimeRange selects the span of the flow series.
type TimeRange string

const (
	Range24h TimeRange = "24h"
	Range7d  TimeRange = "7d"
	Range30d TimeRange = "30d"
)

// Hours returns the number of hourly buckets the range spans. Unknown
// ranges fall back to 24.
func (r TimeRange) Hours() int {
	switch r {
	case Range7d:
		return 168
	case Range30d:
		return 720
	default:
		return 24
	}
}

// PersonType classifies who a camera event refers to.
type PersonType string

const (
	PersonCustomer PersonType = "customer"
	PersonEmployee PersonType = "employee"
)

// EventAction is the movement direction reported by a camera.
type EventAction string

const (
	ActionEnter EventAction = "ENTER"
	ActionExit  EventAction = "EXIT"
)

// CameraEvent is an inbound push payload from the vision pipeline. It is
// consumed exactly once by the reconciler and then discarded.
type CameraEvent struct {
	PersonType PersonType  `json:"person_type"`
	Action     EventAction `json:"action,omitempty"`
	CameraID   string      `json:"camera_id,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
	Timestamp  time.Time   `json:"timestamp,omitempty"`
}
