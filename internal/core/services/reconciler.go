package services

import (
	"time"

	"shopflow/internal/core/domain"
)

// The reconciler is a set of pure previous-state -> next-state transforms.
// MetricsService serializes all calls, so merges of interleaved poll and
// push updates stay lost-update free: push merges are additive, poll merges
// replace wholesale, and the last completed write wins.

// ApplyCameraEvent merges one push event into the metrics aggregate.
// TotalToday counts every event; PeopleInStore counts customers only.
// Employees entering do not move the on-floor counter — observed backend
// policy, preserved as-is.
func ApplyCameraEvent(m domain.LiveMetrics, ev domain.CameraEvent) domain.LiveMetrics {
	m.TotalToday++
	if ev.PersonType == domain.PersonCustomer {
		m.PeopleInStore++
	}
	return m
}

// MergePoll replaces the aggregate with freshly fetched values, deriving
// trends by strict comparison against the previously cached snapshot.
func MergePoll(previous, fetched domain.LiveMetrics) domain.LiveMetrics {
	fetched.Trends = domain.Trends{
		PeopleInStore:  domain.DeriveTrend(float64(previous.PeopleInStore), float64(fetched.PeopleInStore)),
		ConversionRate: domain.DeriveTrend(previous.ConversionRate, fetched.ConversionRate),
		AverageTime:    domain.DeriveTrend(previous.AverageTime, fetched.AverageTime),
	}
	return fetched
}

// ApplyFlowEvent folds a push event into the flow series by incrementing the
// last bucket and recomputing its total. This is an approximation: the event
// is attributed to the newest bucket regardless of its own timestamp, so
// late-arriving events can land in the wrong hour. Bucket boundaries are
// only re-evaluated on the next full-range fetch.
func ApplyFlowEvent(series []domain.FlowPoint, ev domain.CameraEvent) []domain.FlowPoint {
	if len(series) == 0 {
		return series
	}

	next := make([]domain.FlowPoint, len(series))
	copy(next, series)

	last := &next[len(next)-1]
	switch ev.PersonType {
	case domain.PersonCustomer:
		last.Customers++
	case domain.PersonEmployee:
		last.Employees++
	}
	last.Total = last.Customers + last.Employees
	return next
}

// NormalizeFlow recomputes every bucket's total from its parts. Applied to
// fetched series so a backend-supplied total can never drift from the sum.
func NormalizeFlow(series []domain.FlowPoint) []domain.FlowPoint {
	next := make([]domain.FlowPoint, len(series))
	copy(next, series)
	for i := range next {
		next[i].Total = next[i].Customers + next[i].Employees
	}
	return next
}

// ZeroFlow builds the render-safe fallback series: one zero-valued bucket
// per hour spanning the requested range, ascending, ending at now.
func ZeroFlow(r domain.TimeRange, now time.Time) []domain.FlowPoint {
	hours := r.Hours()
	end := now.Truncate(time.Hour)

	series := make([]domain.FlowPoint, hours)
	for i := 0; i < hours; i++ {
		ts := end.Add(-time.Duration(hours-1-i) * time.Hour)
		series[i] = domain.FlowPoint{
			Timestamp: ts,
			Hour:      ts.Format("15:04"),
		}
	}
	return series
}
