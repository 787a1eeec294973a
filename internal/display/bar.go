package display

import "github.com/MrSnakeDoc/sitewatch/internal/domain"

// GlobalBar is the split uptime/downtime bar of the fleet card.
type GlobalBar struct {
	UptimePercent   float64 `json:"uptime_percent"`
	DowntimePercent float64 `json:"downtime_percent"`
	Critical        bool    `json:"critical"`
	Loading         bool    `json:"loading"`
}

// Bar projects an aggregate snapshot. Critical is set as soon as one
// site is offline.
func Bar(s domain.AggregateSnapshot) GlobalBar {
	return GlobalBar{
		UptimePercent:   s.UptimePercent(),
		DowntimePercent: s.DowntimePercent(),
		Critical:        !s.Loading && s.Offline > 0,
		Loading:         s.Loading,
	}
}
