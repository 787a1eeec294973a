package views

import (
	"time"

	"github.com/MrSnakeDoc/sitewatch/internal/display"
	"github.com/MrSnakeDoc/sitewatch/internal/domain"
	"github.com/MrSnakeDoc/sitewatch/internal/history"
	"github.com/MrSnakeDoc/sitewatch/internal/poller"
)

// Kind selects which loops a view owns.
type Kind string

const (
	// KindSite is one site's detail page.
	KindSite Kind = "site"
	// KindClient lists one client's sites with a client rollup.
	KindClient Kind = "client"
	// KindFleet lists every site with a fleet rollup.
	KindFleet Kind = "fleet"
)

func (k Kind) valid() bool {
	switch k {
	case KindSite, KindClient, KindFleet:
		return true
	}
	return false
}

// MountRequest describes the page being opened.
type MountRequest struct {
	Kind   Kind   `json:"kind"`
	Client string `json:"client,omitempty"`
	Site   string `json:"site,omitempty"`
}

// View is a mounted page and the loops it owns. Loops live exactly as
// long as the view.
type View struct {
	ID        string
	Kind      Kind
	Client    string
	Site      string
	CreatedAt time.Time

	sites     []*poller.SiteLoop
	aggregate *poller.AggregateLoop

	lastSeen time.Time
}

func (v *View) start(r *Registry) error {
	for _, l := range v.sites {
		if err := l.Start(r.ctx); err != nil {
			return err
		}
	}
	if v.aggregate != nil {
		if err := v.aggregate.Start(r.ctx); err != nil {
			return err
		}
	}
	return nil
}

func (v *View) stop() {
	for _, l := range v.sites {
		l.Stop()
	}
	if v.aggregate != nil {
		v.aggregate.Stop()
	}
}

// SiteView is the projected state of one site card. Tokens never leave
// the server.
type SiteView struct {
	ID              string        `json:"id"`
	Client          string        `json:"client"`
	Slug            string        `json:"slug"`
	Name            string        `json:"name"`
	URL             string        `json:"url"`
	Current         domain.Status `json:"current"`
	Bins            []display.Bin `json:"bins"`
	DowntimeSeconds int64         `json:"downtime_seconds"`
	Stats           history.Stats `json:"stats"`
	Active          bool          `json:"active"`
}

// AggregateView is the rollup card.
type AggregateView struct {
	domain.AggregateSnapshot
	UptimePercent   float64           `json:"uptime_percent"`
	DowntimePercent float64           `json:"downtime_percent"`
	Bar             display.GlobalBar `json:"bar"`
}

// ViewState is what a page renders.
type ViewState struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Client    string         `json:"client,omitempty"`
	Site      string         `json:"site,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Sites     []SiteView     `json:"sites"`
	Aggregate *AggregateView `json:"aggregate,omitempty"`
}

// State projects every loop of the view.
func (v *View) State() ViewState {
	st := ViewState{
		ID:        v.ID,
		Kind:      v.Kind,
		Client:    v.Client,
		Site:      v.Site,
		CreatedAt: v.CreatedAt,
		Sites:     make([]SiteView, 0, len(v.sites)),
	}

	for _, l := range v.sites {
		st.Sites = append(st.Sites, projectSite(l))
	}

	if v.aggregate != nil {
		snap := v.aggregate.Snapshot()
		st.Aggregate = &AggregateView{
			AggregateSnapshot: snap,
			UptimePercent:     snap.UptimePercent(),
			DowntimePercent:   snap.DowntimePercent(),
			Bar:               display.Bar(snap),
		}
	}
	return st
}

func projectSite(l *poller.SiteLoop) SiteView {
	s := l.State()
	return SiteView{
		ID:              s.Site.ID(),
		Client:          s.Site.ClientSlug,
		Slug:            s.Site.Slug,
		Name:            s.Site.Name,
		URL:             s.Site.URL,
		Current:         s.Current,
		Bins:            display.Project(s.Samples, l.Config().Capacity),
		DowntimeSeconds: s.DowntimeSeconds,
		Stats:           s.Stats,
		Active:          s.Active,
	}
}
