// Package shortener shortens share links through an external service. The
// feature is best-effort: any failure falls back to the original URL rather
// than failing the request that wanted the link.
package shortener

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Shortener calls a shortlink service speaking the common
// /api?api=KEY&url=LONG&format=text dialect.
type Shortener struct {
	endpoint string
	apiKey   string
	client   *http.Client
	log      *slog.Logger
}

// New constructs a Shortener. An empty site or key disables shortening;
// Shorten then returns its input unchanged.
func New(site, apiKey string, log *slog.Logger) *Shortener {
	endpoint := site
	if endpoint != "" && !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	return &Shortener{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 5 * time.Second},
		log:      log,
	}
}

// Shorten returns the shortened form of longURL, or longURL itself when the
// service is disabled or misbehaves.
func (s *Shortener) Shorten(ctx context.Context, longURL string) string {
	if s.endpoint == "" || s.apiKey == "" {
		return longURL
	}
	q := url.Values{}
	q.Set("api", s.apiKey)
	q.Set("url", longURL)
	q.Set("format", "text")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/api?"+q.Encode(), nil)
	if err != nil {
		s.log.Warn("shortener request build failed", "err", err)
		return longURL
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("shortener unreachable", "err", err)
		return longURL
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		s.log.Warn("shortener rejected request", "status", resp.StatusCode)
		return longURL
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		s.log.Warn("shortener response unreadable", "err", err)
		return longURL
	}
	short := strings.TrimSpace(string(body))
	if !strings.HasPrefix(short, "http://") && !strings.HasPrefix(short, "https://") {
		s.log.Warn("shortener returned garbage", "body", short)
		return longURL
	}
	return short
}
