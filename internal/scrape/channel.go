package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/anditomara/chatpulse/internal/model"
	"github.com/anditomara/chatpulse/internal/normalize"
	"github.com/anditomara/chatpulse/internal/worker"
)

// errTerminal marks failures that must not be retried for this source
// (bad token, missing permission, unknown channel).
var errTerminal = errors.New("terminal source error")

// ChannelConnector harvests a channel REST API (Discord-style): pages of
// fixed size walked backward via a "before" cursor, newest first.
type ChannelConnector struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	limiter     *worker.Limiter
	window      time.Duration
	pageSize    int
	maxRetries  int
	backoffBase time.Duration
	log         *slog.Logger
}

// NewChannelConnector builds a connector from configuration. The limiter
// paces requests client-side on top of the server's own 429 signals.
func NewChannelConnector(cfg model.ChannelConfig, scrape model.ScrapeConfig, window time.Duration, limiter *worker.Limiter, log *slog.Logger) *ChannelConnector {
	pageSize := scrape.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &ChannelConnector{
		baseURL:     cfg.BaseURL,
		token:       cfg.Token,
		httpClient:  &http.Client{Timeout: scrape.Timeout},
		limiter:     limiter,
		window:      window,
		pageSize:    pageSize,
		maxRetries:  scrape.MaxRetries,
		backoffBase: scrape.BackoffBase,
		log:         log,
	}
}

// Platform identifies records produced by this connector.
func (c *ChannelConnector) Platform() model.Platform {
	return model.PlatformChannel
}

// channelMessage is the wire shape of one REST message.
type channelMessage struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Author    struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"author"`
	Embeds []struct {
		URL string `json:"url"`
	} `json:"embeds"`
}

// Harvest pulls every message inside the window, newest first. Rate-limit
// responses wait the advertised delay and retry the same page; transient
// transport errors retry with doubling backoff until the attempt cap.
func (c *ChannelConnector) Harvest(ctx context.Context, channelID string) ([]model.Message, model.ScrapeStats) {
	cutoff := time.Now().UTC().Add(-c.window)

	var raw []channelMessage
	before := ""

	for {
		batch, err := c.fetchPage(ctx, channelID, before)
		if err != nil {
			c.log.Error("channel fetch failed", "channel", channelID, "error", err)
			return nil, model.FailedStats(channelID, model.PlatformChannel, err)
		}
		if len(batch) == 0 {
			break
		}

		inWindow := batch
		halted := false
		for i, msg := range batch {
			ts, tsErr := parseChannelTime(msg.Timestamp)
			if tsErr != nil {
				continue
			}
			if ts.Before(cutoff) {
				// Delivery is descending: everything after this is older still.
				inWindow = batch[:i]
				halted = true
				break
			}
		}

		raw = append(raw, inWindow...)

		if halted || len(batch) < c.pageSize {
			break
		}
		before = batch[len(batch)-1].ID
	}

	msgs := make([]model.Message, 0, len(raw))
	for _, msg := range raw {
		if normalize.IsLowValue(msg.Content) {
			continue
		}
		ts, err := parseChannelTime(msg.Timestamp)
		if err != nil {
			continue
		}

		var links []string
		for _, embed := range msg.Embeds {
			if embed.URL != "" {
				links = append(links, embed.URL)
			}
		}

		msgs = append(msgs, model.Message{
			ID:        msg.ID,
			Platform:  model.PlatformChannel,
			Text:      normalize.Clean(msg.Content),
			Timestamp: ts.UTC(),
			Author:    fmt.Sprintf("%s#%s", msg.Author.Username, msg.Author.ID),
			Links:     links,
		})
	}

	stats := model.ScrapeStats{
		ChannelID: channelID,
		Platform:  model.PlatformChannel,
		Pulled:    len(raw),
		Kept:      len(msgs),
		Success:   true,
	}
	c.log.Info("channel harvested", "channel", channelID, "pulled", stats.Pulled, "kept", stats.Kept)
	return msgs, stats
}

// fetchPage requests a single page, absorbing rate limits and retrying
// transient errors. Terminal status codes surface immediately.
func (c *ChannelConnector) fetchPage(ctx context.Context, channelID, before string) ([]channelMessage, error) {
	pageURL := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, url.PathEscape(channelID))

	for attempt := 0; ; {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, pageURL); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		q := req.URL.Query()
		q.Set("limit", strconv.Itoa(c.pageSize))
		if before != "" {
			q.Set("before", before)
		}
		req.URL.RawQuery = q.Encode()
		req.Header.Set("Authorization", c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt++; attempt >= c.maxRetries {
				return nil, fmt.Errorf("fetch page: %w", err)
			}
			c.log.Warn("channel transient error", "channel", channelID, "attempt", attempt, "error", err)
			sleepFunc(ctx, backoffDelay(c.backoffBase, attempt-1))
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var batch []channelMessage
			err := json.NewDecoder(resp.Body).Decode(&batch)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("decode page: %w", err)
			}
			return batch, nil

		case http.StatusTooManyRequests:
			delay := retryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			c.log.Warn("channel rate limited", "channel", channelID, "wait", delay)
			sleepFunc(ctx, delay)
			// Does not consume a retry attempt.
			continue

		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return nil, fmt.Errorf("%w: access denied (%d)", errTerminal, resp.StatusCode)

		case http.StatusNotFound:
			resp.Body.Close()
			return nil, fmt.Errorf("%w: channel not found", errTerminal)

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			resp.Body.Close()
			if attempt++; attempt >= c.maxRetries {
				return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
			}
			c.log.Warn("channel unexpected status", "channel", channelID, "status", resp.StatusCode, "attempt", attempt)
			sleepFunc(ctx, backoffDelay(c.backoffBase, attempt-1))
		}
	}
}

func parseChannelTime(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}

// retryAfter parses a Retry-After header; servers send seconds, sometimes
// fractional. Falls back to one second when unparsable.
func retryAfter(header string) time.Duration {
	if header == "" {
		return time.Second
	}
	if secs, err := strconv.ParseFloat(header, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return time.Second
}
