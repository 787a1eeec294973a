package probe

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
	"github.com/MrSnakeDoc/sitewatch/internal/logger"
)

const (
	// CheckPath is the status plugin route appended to a site URL.
	CheckPath = "/wp-json/status-monitor/v1/check"
	// TokenHeader carries the site credential.
	TokenHeader = "X-Status-Token"
	// UserAgent identifies the probe to the plugin.
	UserAgent = "StatusMonitor/1.0"

	// DefaultTimeout keeps a 1s to 60s poll cadence responsive.
	DefaultTimeout = 3 * time.Second
)

// Prober performs one health check and folds every failure into offline.
// Implementations must not return anything other than online or offline.
type Prober interface {
	Probe(ctx context.Context, url, token string) domain.Status
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, url, token string) domain.Status

func (f ProberFunc) Probe(ctx context.Context, url, token string) domain.Status {
	return f(ctx, url, token)
}

// Endpoint returns the plugin check URL for a site base URL.
func Endpoint(siteURL string) string {
	return strings.TrimRight(siteURL, "/") + CheckPath
}

// HTTPProber calls the site's status plugin directly.
type HTTPProber struct {
	client  *http.Client
	timeout time.Duration
	logger  logger.Logger
}

// NewHTTPProber builds a direct prober. A zero timeout uses DefaultTimeout.
func NewHTTPProber(timeout time.Duration, log logger.Logger) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPProber{
		client:  newClient(timeout),
		timeout: timeout,
		logger:  log,
	}
}

// newClient returns a client with short dial and handshake timeouts
// that never follows redirects.
func newClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Probe issues GET <url>/wp-json/status-monitor/v1/check.
// 2xx is online. Anything else, including timeouts, is offline.
func (p *HTTPProber) Probe(ctx context.Context, url, token string) domain.Status {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	endpoint := Endpoint(url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		p.logger.Debug("probe request invalid",
			logger.String("endpoint", endpoint),
			logger.Error(err))
		return domain.StatusOffline
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TokenHeader, token)
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Cache-Control", "no-store")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("probe failed",
			logger.String("endpoint", endpoint),
			logger.Error(err))
		return domain.StatusOffline
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.Debug("probe got non-2xx",
			logger.String("endpoint", endpoint),
			logger.Int("status", resp.StatusCode))
		return domain.StatusOffline
	}
	return domain.StatusOnline
}
