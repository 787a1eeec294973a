package domain

import (
	"math"
	"time"
)

// AggregateSnapshot is the fleet-wide rollup of one aggregate tick.
type AggregateSnapshot struct {
	Online    int       `json:"online"`
	Offline   int       `json:"offline"`
	Total     int       `json:"total"`
	Loading   bool      `json:"loading"`
	CheckedAt time.Time `json:"checked_at,omitzero"`
}

// UptimePercent returns online/total*100 rounded to one decimal.
func (s AggregateSnapshot) UptimePercent() float64 {
	return Percent(s.Online, s.Total)
}

// DowntimePercent returns offline/total*100 rounded to one decimal.
func (s AggregateSnapshot) DowntimePercent() float64 {
	return Percent(s.Offline, s.Total)
}

// Conserved reports whether online + offline == total.
// Only meaningful once Loading is false.
func (s AggregateSnapshot) Conserved() bool {
	return s.Online+s.Offline == s.Total
}

// Percent returns n/max(total,1)*100 rounded to one decimal place.
func Percent(n, total int) float64 {
	if total < 1 {
		total = 1
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}
