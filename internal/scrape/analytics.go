package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anditomara/chatpulse/internal/cache"
	"github.com/anditomara/chatpulse/internal/model"
	"github.com/anditomara/chatpulse/internal/normalize"
	"github.com/anditomara/chatpulse/internal/worker"
)

// twitterEpochMS is the millisecond epoch used by snowflake ids; items
// without an explicit timestamp recover one from their id.
const twitterEpochMS = 1288834974657

// allowedEndpoints restricts which analytics paths a source may point at.
var allowedEndpoints = map[string]struct{}{
	"event-summary":       {},
	"trending-narratives": {},
}

// AnalyticsConnector harvests aggregate tweet data from the analytics API.
// The source identifier is a path plus query, e.g.
// "data/event-summary?keywords=bridge". Responses are cached briefly since
// the same endpoint is often shared across runs.
type AnalyticsConnector struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	limiter     *worker.Limiter
	cache       cache.Cache
	cacheTTL    time.Duration
	window      time.Duration
	maxRetries  int
	backoffBase time.Duration
	log         *slog.Logger
}

// NewAnalyticsConnector builds a connector; cache may be nil to disable
// response caching.
func NewAnalyticsConnector(cfg model.AnalyticsConfig, scrape model.ScrapeConfig, window time.Duration, limiter *worker.Limiter, store cache.Cache, log *slog.Logger) *AnalyticsConnector {
	return &AnalyticsConnector{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: scrape.Timeout},
		limiter:     limiter,
		cache:       store,
		cacheTTL:    cfg.CacheTTL,
		window:      window,
		maxRetries:  scrape.MaxRetries,
		backoffBase: scrape.BackoffBase,
		log:         log,
	}
}

// Platform identifies records produced by this connector.
func (c *AnalyticsConnector) Platform() model.Platform {
	return model.PlatformAnalytics
}

type analyticsResponse struct {
	Success bool            `json:"success"`
	Data    []analyticsItem `json:"data"`
}

type analyticsItem struct {
	ID        json.Number `json:"id"`
	Content   string      `json:"content"`
	Username  string      `json:"username"`
	Timestamp string      `json:"timestamp"`
	Links     []string    `json:"links"`
}

// Harvest performs a single windowed pull of one analytics endpoint. The
// endpoint delivers everything at once, so out-of-window items are
// filtered rather than halting anything.
func (c *AnalyticsConnector) Harvest(ctx context.Context, endpoint string) ([]model.Message, model.ScrapeStats) {
	name, err := EndpointName(endpoint)
	if err != nil {
		return nil, model.FailedStats(endpoint, model.PlatformAnalytics, err)
	}

	body, err := c.fetch(ctx, endpoint)
	if err != nil {
		c.log.Error("analytics fetch failed", "endpoint", name, "error", err)
		return nil, model.FailedStats(name, model.PlatformAnalytics, err)
	}

	var parsed analyticsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, model.FailedStats(name, model.PlatformAnalytics, fmt.Errorf("decode response: %w", err))
	}
	if !parsed.Success {
		return nil, model.FailedStats(name, model.PlatformAnalytics, fmt.Errorf("endpoint reported failure"))
	}

	cutoff := time.Now().UTC().Add(-c.window)
	msgs := make([]model.Message, 0, len(parsed.Data))
	for _, item := range parsed.Data {
		ts := itemTime(item)
		if ts.Before(cutoff) {
			continue
		}
		if normalize.IsLowValue(item.Content) {
			continue
		}

		msgs = append(msgs, model.Message{
			ID:        item.ID.String(),
			Platform:  model.PlatformAnalytics,
			Text:      normalize.Clean(item.Content),
			Timestamp: ts,
			Author:    item.Username,
			Links:     item.Links,
		})
	}

	stats := model.ScrapeStats{
		ChannelID: name,
		Platform:  model.PlatformAnalytics,
		Pulled:    len(parsed.Data),
		Kept:      len(msgs),
		Success:   true,
	}
	c.log.Info("analytics harvested", "endpoint", name, "pulled", stats.Pulled, "kept", stats.Kept)
	return msgs, stats
}

// fetch returns the raw response body, serving from cache when a fresh
// copy exists.
func (c *AnalyticsConnector) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	fullURL := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")

	if c.cache != nil {
		if body, ok := c.cache.Get(cache.Key(fullURL)); ok {
			return body, nil
		}
	}

	for attempt := 0; ; {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, fullURL); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("x-elfa-api-key", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt++; attempt >= c.maxRetries {
				return nil, fmt.Errorf("fetch endpoint: %w", err)
			}
			sleepFunc(ctx, backoffDelay(c.backoffBase, attempt-1))
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read body: %w", err)
			}
			if c.cache != nil {
				_ = c.cache.Set(cache.Key(fullURL), body, c.cacheTTL)
			}
			return body, nil

		case http.StatusTooManyRequests:
			delay := retryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			c.log.Warn("analytics rate limited", "wait", delay)
			sleepFunc(ctx, delay)

		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return nil, fmt.Errorf("%w: access denied (%d)", errTerminal, resp.StatusCode)

		case http.StatusNotFound:
			resp.Body.Close()
			return nil, fmt.Errorf("%w: endpoint not found", errTerminal)

		default:
			resp.Body.Close()
			if attempt++; attempt >= c.maxRetries {
				return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
			}
			sleepFunc(ctx, backoffDelay(c.backoffBase, attempt-1))
		}
	}
}

// EndpointName extracts the endpoint label from a path+query source id and
// rejects paths outside the allow list.
func EndpointName(pathAndQuery string) (string, error) {
	path := strings.SplitN(pathAndQuery, "?", 2)[0]
	segments := strings.Split(strings.Trim(path, "/"), "/")
	name := segments[len(segments)-1]
	if _, ok := allowedEndpoints[name]; !ok {
		return "", fmt.Errorf("unsupported analytics endpoint %q", name)
	}
	return name, nil
}

// itemTime prefers an explicit timestamp and otherwise recovers one from
// the snowflake id. Items with neither get the zero time and are dropped
// at the merge stage.
func itemTime(item analyticsItem) time.Time {
	if item.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, item.Timestamp); err == nil {
			return ts.UTC()
		}
	}
	if id, err := item.ID.Int64(); err == nil && id > 0 {
		ms := (id >> 22) + twitterEpochMS
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}
