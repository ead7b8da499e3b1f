package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go_youtube/internal/engine"
	"github.com/cenkalti/backoff/v5"
)

const maxBodyBytes = 4 * 1024 * 1024

// client is the shared HTTP layer of every backend: default headers, proxy,
// and exponential-backoff retry on transient statuses.
type client struct {
	http    *http.Client
	headers map[string]string

	initialWait time.Duration
	maxWait     time.Duration
	maxTries    uint
}

func newClient(cfg engine.Config, headers map[string]string) *client {
	hc := cfg.HTTPClient
	if hc == nil {
		built, err := engine.NewHTTPClient(cfg.ProxyURL, cfg.UserAgent)
		if err != nil {
			slog.Warn("sources: invalid proxy URL, connecting directly", slog.Any("error", err))
			built = &http.Client{Timeout: 15 * time.Second}
		}
		hc = built
	}
	h := make(map[string]string, len(headers)+1)
	ua := cfg.UserAgent
	if ua == "" {
		ua = stealth.RandomUserAgent()
	}
	h["User-Agent"] = ua
	for k, v := range headers {
		h[k] = v
	}
	return &client{
		http:        hc,
		headers:     h,
		initialWait: time.Second,
		maxWait:     10 * time.Second,
		maxTries:    3,
	}
}

// do performs one request and returns the body of a 200 response.
// 404 maps to engine.ErrNotFound; network errors, 429 and 5xx are retried.
func (c *client) do(ctx context.Context, method, u string, body []byte, extra map[string]string) ([]byte, error) {
	operation := func() ([]byte, error) {
		var r io.Reader
		if body != nil {
			r = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, r)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}
		for k, v := range extra {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			var ue *url.Error
			if errors.As(err, &ue) {
				err = ue.Err
			}
			return nil, fmt.Errorf("%s %s: %w", method, redact(u), err)
		}
		defer resp.Body.Close()

		if stealth.IsRetryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, backoff.Permanent(engine.ErrNotFound)
		}
		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			return nil, backoff.Permanent(fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet))
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialWait
	bo.MaxInterval = c.maxWait

	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(c.maxTries), backoff.WithMaxElapsedTime(30*time.Second))
}

func (c *client) getJSON(ctx context.Context, u string, out any) error {
	data, err := c.do(ctx, http.MethodGet, u, nil, map[string]string{"Accept": "application/json"})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", redact(u), err)
	}
	return nil
}

func (c *client) postJSON(ctx context.Context, u string, payload any, extra map[string]string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range extra {
		h[k] = v
	}
	return c.do(ctx, http.MethodPost, u, body, h)
}

// redact strips the query string so API keys never reach logs or errors.
func redact(u string) string {
	p, err := url.Parse(u)
	if err != nil {
		return "<invalid url>"
	}
	p.RawQuery = ""
	return p.String()
}
