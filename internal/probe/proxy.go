package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
	"github.com/MrSnakeDoc/sitewatch/internal/logger"
)

// CheckRequest is the body of the check-status proxy endpoint.
type CheckRequest struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// CheckResponse is always returned with HTTP 200; only Status matters.
type CheckResponse struct {
	Status domain.Status `json:"status"`
}

// ProxyProber delegates the check to a check-status endpoint that performs
// the plugin GET server-side.
type ProxyProber struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	logger   logger.Logger
}

// NewProxyProber targets endpoint, e.g. http://localhost:8080/api/check-status.
func NewProxyProber(endpoint string, timeout time.Duration, log logger.Logger) *ProxyProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ProxyProber{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		logger:   log,
	}
}

// Probe posts {url, token} and reads {status}. The HTTP status of the
// proxy call is ignored; a body that is not exactly "online" is offline.
func (p *ProxyProber) Probe(ctx context.Context, url, token string) domain.Status {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body, err := json.Marshal(CheckRequest{URL: url, Token: token})
	if err != nil {
		return domain.StatusOffline
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		p.logger.Debug("proxy probe request invalid",
			logger.String("endpoint", p.endpoint),
			logger.Error(err))
		return domain.StatusOffline
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("proxy probe failed",
			logger.String("endpoint", p.endpoint),
			logger.String("url", url),
			logger.Error(err))
		return domain.StatusOffline
	}
	defer func() { _ = resp.Body.Close() }()

	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		p.logger.Debug("proxy probe returned unreadable body",
			logger.String("endpoint", p.endpoint),
			logger.Error(err))
		return domain.StatusOffline
	}
	return domain.ParseVerdict(out.Status)
}
