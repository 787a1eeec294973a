package display

import "github.com/MrSnakeDoc/sitewatch/internal/domain"

// Height is a bar height as a percentage of the track.
type Height int

const (
	HeightMinimal Height = 20
	HeightMedium  Height = 60
	HeightFull    Height = 100
)

// HeightFor maps a status to its bar height. Offline is the tallest bar
// so outages stand out.
func HeightFor(s domain.Status) Height {
	switch s {
	case domain.StatusOnline:
		return HeightMedium
	case domain.StatusOffline:
		return HeightFull
	default:
		return HeightMinimal
	}
}

// PendingTimestamp is shown for placeholder bins.
const PendingTimestamp = "-"

// Bin is one bar of the uptime strip.
type Bin struct {
	Status    domain.Status `json:"status"`
	Timestamp string        `json:"timestamp"`
	Height    Height        `json:"height"`
	Tooltip   bool          `json:"tooltip"`
}

// Project maps a history window onto exactly capacity bins, most recent
// last. Short histories are left-padded with pending bins.
func Project(samples []domain.PingSample, capacity int) []Bin {
	if capacity <= 0 {
		return []Bin{}
	}

	bins := make([]Bin, 0, capacity)
	if pad := capacity - len(samples); pad > 0 {
		for i := 0; i < pad; i++ {
			bins = append(bins, Bin{
				Status:    domain.StatusPending,
				Timestamp: PendingTimestamp,
				Height:    HeightMinimal,
			})
		}
	} else {
		samples = samples[len(samples)-capacity:]
	}

	for _, s := range samples {
		bins = append(bins, Bin{
			Status:    s.Status,
			Timestamp: s.Timestamp(),
			Height:    HeightFor(s.Status),
			Tooltip:   s.Status != domain.StatusPending,
		})
	}
	return bins
}
