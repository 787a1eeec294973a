package history

import "github.com/MrSnakeDoc/sitewatch/internal/domain"

// Stats summarizes the verdicts inside one history window.
type Stats struct {
	Online        int     `json:"online"`
	Offline       int     `json:"offline"`
	Total         int     `json:"total"`
	UptimePercent float64 `json:"uptime_percent"`
}

// Summarize counts verdicts in samples. Pending placeholders are ignored.
func Summarize(samples []domain.PingSample) Stats {
	var st Stats
	for _, s := range samples {
		switch s.Status {
		case domain.StatusOnline:
			st.Online++
		case domain.StatusOffline:
			st.Offline++
		}
	}
	st.Total = st.Online + st.Offline
	st.UptimePercent = domain.Percent(st.Online, st.Total)
	return st
}
