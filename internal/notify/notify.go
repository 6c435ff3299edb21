package notify

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"db-auto-backup/internal/logger"

	"go.uber.org/zap"
)

// Environment variables resolving the success hook endpoint.
const (
	EnvSuccessHookURL   = "SUCCESS_HOOK_URL"
	EnvHealthchecksID   = "HEALTHCHECKS_ID"
	EnvHealthchecksHost = "HEALTHCHECKS_HOST"
	EnvUptimeKumaURL    = "UPTIME_KUMA_URL"

	DefaultHealthchecksHost = "hc-ping.com"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
)

// HookURL resolves the success hook endpoint from the environment. An
// explicit SUCCESS_HOOK_URL wins, then a healthchecks.io ping URL built
// from HEALTHCHECKS_ID and HEALTHCHECKS_HOST, then an Uptime Kuma push
// URL. An empty result means notification is disabled.
func HookURL() string {
	if url := os.Getenv(EnvSuccessHookURL); url != "" {
		return url
	}
	if id := os.Getenv(EnvHealthchecksID); id != "" {
		host := os.Getenv(EnvHealthchecksHost)
		if host == "" {
			host = DefaultHealthchecksHost
		}
		return fmt.Sprintf("https://%s/%s", host, id)
	}
	if url := os.Getenv(EnvUptimeKumaURL); url != "" {
		return url
	}
	return ""
}

// Pinger notifies a monitoring endpoint that a run completed with every
// container backed up. A pinger with an empty URL is a no-op.
type Pinger struct {
	url        string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
}

// NewPinger returns a pinger for the given hook URL.
func NewPinger(url string) *Pinger {
	return &Pinger{
		url:        url,
		client:     &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		backoff:    time.Second,
	}
}

// Notify sends the success ping, retrying with exponential backoff.
func (p *Pinger) Notify(ctx context.Context) error {
	if p.url == "" {
		logger.Log.Debug("No success hook configured, skipping notification")
		return nil
	}

	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		err := p.pingOnce(ctx)
		if err == nil {
			logger.Log.Info("Success hook notified", zap.String("url", p.url))
			return nil
		}
		lastErr = err
		logger.Log.Warn("Success hook ping failed",
			zap.String("url", p.url),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		if attempt < p.maxRetries-1 {
			wait := time.Duration(2<<attempt) * p.backoff
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("success hook unreachable after %d attempts: %w", p.maxRetries, lastErr)
}

func (p *Pinger) pingOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "db-auto-backup/1.0")
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("success hook returned status %d", resp.StatusCode)
	}
	return nil
}
