package tui

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/sitewatch/internal/logger"
	"github.com/MrSnakeDoc/sitewatch/internal/poller"
)

// RunHeadless logs the loop state once per probe interval until ctx is done.
func RunHeadless(ctx context.Context, loop Source, log logger.Logger) {
	interval := loop.Config().Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logState(log, loop.State())
		}
	}
}

func logState(log logger.Logger, st poller.SiteState) {
	log.Info("site status",
		logger.String("site", st.Site.ID()),
		logger.String("status", string(st.Current)),
		logger.Int("downtime_seconds", int(st.DowntimeSeconds)),
		logger.Float64("uptime_percent", st.Stats.UptimePercent),
		logger.Int("checks", st.Stats.Total))
}
