package domain

import "time"

// TimelineEvent describes one event in the lifecycle of an order. The
// timeline is the per-order audit trail the dashboard shows.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Reason   string
	Occurred time.Time
}
