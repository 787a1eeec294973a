package history

import "github.com/MrSnakeDoc/sitewatch/internal/domain"

const (
	// DetailCapacity is the window of the full site view (60 samples).
	DetailCapacity = 60
	// CompactCapacity is the window of the list/mini view (20 samples).
	CompactCapacity = 20
)

// Ring is a fixed-capacity FIFO of ping samples. Appending beyond
// capacity evicts the oldest sample.
//
// Ring is not safe for concurrent use; the owning poll loop guards it.
type Ring struct {
	buf  []domain.PingSample
	head int // index of the oldest sample
	size int
}

// New returns an empty ring. Capacities below 1 are clamped to 1.
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]domain.PingSample, capacity)}
}

// Append records s, dropping the oldest sample when full.
func (r *Ring) Append(s domain.PingSample) {
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = s
		r.size++
		return
	}
	r.buf[r.head] = s
	r.head = (r.head + 1) % len(r.buf)
}

// Samples returns a copy of the window, oldest first.
func (r *Ring) Samples() []domain.PingSample {
	out := make([]domain.PingSample, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// Last returns the most recent sample.
func (r *Ring) Last() (domain.PingSample, bool) {
	if r.size == 0 {
		return domain.PingSample{}, false
	}
	return r.buf[(r.head+r.size-1)%len(r.buf)], true
}

func (r *Ring) Len() int { return r.size }
func (r *Ring) Cap() int { return len(r.buf) }
