package domain

import "time"

// Status is the availability of a site as shown to an operator.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"

	// StatusPending is a display placeholder. A probe never yields it.
	StatusPending Status = "pending"
)

// ParseVerdict folds any value other than "online" into offline.
func ParseVerdict(s string) Status {
	if Status(s) == StatusOnline {
		return StatusOnline
	}
	return StatusOffline
}

// IsVerdict reports whether s is a real probe outcome.
func (s Status) IsVerdict() bool {
	return s == StatusOnline || s == StatusOffline
}

// TimestampLayout is the wall-clock format used for sample tooltips.
const TimestampLayout = "15:04:05"

// PingSample is one recorded probe result. Immutable once appended.
type PingSample struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
}

// Timestamp returns the capture time formatted for display.
func (p PingSample) Timestamp() string {
	return p.At.Format(TimestampLayout)
}
