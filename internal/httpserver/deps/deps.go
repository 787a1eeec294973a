package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/sitewatch/internal/index"
	"github.com/MrSnakeDoc/sitewatch/internal/logger"
	"github.com/MrSnakeDoc/sitewatch/internal/probe"
	"github.com/MrSnakeDoc/sitewatch/internal/telemetry"
	"github.com/MrSnakeDoc/sitewatch/internal/views"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed on operator endpoints
	AllowedCIDRS []string         // IPs allowed on operator endpoints
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)

	RosterSource string             // "file" or "database", reported by /infra
	MemoryIndex  *index.MemoryIndex // In-memory roster
	RedisClient  *redis.Client      // nil when Redis is disabled

	Views     *views.Registry   // mounted dashboard views
	Prober    probe.Prober      // server-side check behind /api/check-status
	Telemetry *telemetry.Client // full plugin reports

	CheckRateBurst  int // check-status burst per IP
	CheckRatePerMin int // check-status refill per IP per minute

	ReloadTrigger chan struct{} // Channel to trigger manual roster reload
}
