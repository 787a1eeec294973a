package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrSnakeDoc/sitewatch/internal/display"
	"github.com/MrSnakeDoc/sitewatch/internal/domain"
	"github.com/MrSnakeDoc/sitewatch/internal/poller"
)

var (
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"})
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"})
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#F25D94", Dark: "#F25D94"})
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	frameStyle   = lipgloss.NewStyle().Padding(1, 2)
)

// refreshEvery is how often the screen re-reads the loop state. It is
// independent of the probe interval.
const refreshEvery = 250 * time.Millisecond

type refreshMsg time.Time

// Source is the loop the model renders.
type Source interface {
	State() poller.SiteState
	Config() poller.SiteLoopConfig
}

// Model renders one detail loop.
type Model struct {
	loop  Source
	state poller.SiteState
	width int
}

func NewModel(loop Source) Model {
	return Model{loop: loop, state: loop.State()}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return refresh()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case refreshMsg:
		m.state = m.loop.State()
		return m, refresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) View() string {
	st := m.state
	bins := clip(display.Project(st.Samples, m.loop.Config().Capacity), m.width)

	var b strings.Builder
	b.WriteString(titleStyle.Render(st.Site.Name))
	b.WriteString("  ")
	b.WriteString(subtleStyle.Render(st.Site.URL))
	b.WriteString("\n\n")
	b.WriteString(Header(st))
	b.WriteString("\n\n")
	b.WriteString(Strip(bins))
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render(axis(bins)))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("uptime %.1f%%  (%d/%d checks)", st.Stats.UptimePercent, st.Stats.Online, st.Stats.Total))
	b.WriteString("\n\n")
	b.WriteString(subtleStyle.Render("q: quit"))
	return frameStyle.Render(b.String())
}

// clip keeps the most recent bins that fit a terminal of the given width
// once the frame padding is taken. Width 0 means not yet known.
func clip(bins []display.Bin, width int) []display.Bin {
	if width <= 0 {
		return bins
	}
	avail := max(width-frameStyle.GetHorizontalFrameSize(), 1)
	if len(bins) <= avail {
		return bins
	}
	return bins[len(bins)-avail:]
}

// Glyph maps a bin height to its block character.
func Glyph(h display.Height) string {
	switch h {
	case display.HeightFull:
		return "█"
	case display.HeightMedium:
		return "▄"
	default:
		return "▁"
	}
}

func styleFor(s domain.Status) lipgloss.Style {
	switch s {
	case domain.StatusOnline:
		return onlineStyle
	case domain.StatusOffline:
		return offlineStyle
	default:
		return subtleStyle
	}
}

// Strip renders one column per bin, oldest on the left.
func Strip(bins []display.Bin) string {
	var b strings.Builder
	for _, bin := range bins {
		b.WriteString(styleFor(bin.Status).Render(Glyph(bin.Height)))
	}
	return b.String()
}

// axis labels the first and last recorded bins.
func axis(bins []display.Bin) string {
	first, last := "", ""
	for _, bin := range bins {
		if bin.Status == domain.StatusPending {
			continue
		}
		if first == "" {
			first = bin.Timestamp
		}
		last = bin.Timestamp
	}
	if first == "" {
		return strings.Repeat(" ", len(bins))
	}
	gap := len(bins) - len(first) - len(last)
	if gap < 1 {
		return last
	}
	return first + strings.Repeat(" ", gap) + last
}

// Header shows the current status and, while down, the downtime counter.
func Header(st poller.SiteState) string {
	label := strings.ToUpper(string(st.Current))
	out := styleFor(st.Current).Bold(true).Render("● " + label)
	if st.Current == domain.StatusOffline {
		out += "  " + offlineStyle.Render(fmt.Sprintf("OFFLINE: %ds", st.DowntimeSeconds))
	}
	return out
}
