// Package selfping keeps free-tier hosts from idling the process out by
// periodically requesting the service's own public URL.
package selfping

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Pinger struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   *zap.Logger
}

func New(url string, interval time.Duration, logger *zap.Logger) *Pinger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pinger{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger.Named("selfping"),
	}
}

// Run pings until ctx is cancelled. A no-op when no URL is configured.
func (p *Pinger) Run(ctx context.Context) {
	if p.url == "" {
		return
	}

	p.logger.Info("self-ping enabled",
		zap.String("url", p.url), zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.ping(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pinger) ping(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.logger.Warn("self-ping request build failed", zap.Error(err))
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("self-ping failed", zap.Error(err))
		return
	}
	resp.Body.Close()

	p.logger.Debug("self-ping ok", zap.Int("status", resp.StatusCode))
}
