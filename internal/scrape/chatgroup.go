package scrape

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/anditomara/chatpulse/internal/model"
	"github.com/anditomara/chatpulse/internal/normalize"
)

// GroupMessage is one raw item delivered by the chat-group session.
type GroupMessage struct {
	ID       int64
	Text     string
	Date     time.Time
	AuthorID string
	Links    []string
}

// GroupSession is the persistent authenticated connection to the
// chat-group platform. It must already be connected and authorized before
// harvesting starts; the pipeline refuses to run otherwise. History pages
// are delivered newest first, beforeID=0 meaning the latest page.
type GroupSession interface {
	Authorized(ctx context.Context) bool
	History(ctx context.Context, groupID string, beforeID int64, limit int) ([]GroupMessage, error)
}

// ChatGroupConnector harvests a chat group through an existing session.
type ChatGroupConnector struct {
	session     GroupSession
	window      time.Duration
	pageSize    int
	maxRetries  int
	backoffBase time.Duration
	log         *slog.Logger
}

// NewChatGroupConnector wires a connector onto an authorized session.
func NewChatGroupConnector(session GroupSession, scrape model.ScrapeConfig, window time.Duration, log *slog.Logger) *ChatGroupConnector {
	pageSize := scrape.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &ChatGroupConnector{
		session:     session,
		window:      window,
		pageSize:    pageSize,
		maxRetries:  scrape.MaxRetries,
		backoffBase: scrape.BackoffBase,
		log:         log,
	}
}

// Platform identifies records produced by this connector.
func (c *ChatGroupConnector) Platform() model.Platform {
	return model.PlatformChatGroup
}

// Harvest walks group history backward until the window cutoff. Session
// errors are retried with doubling backoff; when attempts exhaust the
// source fails alone and siblings are unaffected.
func (c *ChatGroupConnector) Harvest(ctx context.Context, groupID string) ([]model.Message, model.ScrapeStats) {
	cutoff := time.Now().UTC().Add(-c.window)

	var raw []GroupMessage
	var beforeID int64

	for {
		page, err := c.fetchHistory(ctx, groupID, beforeID)
		if err != nil {
			c.log.Error("chat group fetch failed", "group", groupID, "error", err)
			return nil, model.FailedStats(groupID, model.PlatformChatGroup, err)
		}
		if len(page) == 0 {
			break
		}

		halted := false
		for i, msg := range page {
			if msg.Date.UTC().Before(cutoff) {
				c.log.Debug("reached window cutoff, stopping iteration", "group", groupID)
				page = page[:i]
				halted = true
				break
			}
		}

		raw = append(raw, page...)

		if halted || len(page) < c.pageSize {
			break
		}
		beforeID = page[len(page)-1].ID
	}

	pulled := 0
	msgs := make([]model.Message, 0, len(raw))
	for _, msg := range raw {
		if msg.Text == "" {
			continue
		}
		pulled++

		if normalize.IsLowValue(msg.Text) {
			continue
		}

		msgs = append(msgs, model.Message{
			ID:        strconv.FormatInt(msg.ID, 10),
			Platform:  model.PlatformChatGroup,
			Text:      normalize.Clean(msg.Text),
			Timestamp: msg.Date.UTC(),
			Author:    msg.AuthorID,
			Links:     msg.Links,
		})
	}

	stats := model.ScrapeStats{
		ChannelID: groupID,
		Platform:  model.PlatformChatGroup,
		Pulled:    pulled,
		Kept:      len(msgs),
		Success:   true,
	}
	c.log.Info("chat group harvested", "group", groupID, "pulled", stats.Pulled, "kept", stats.Kept)
	return msgs, stats
}

func (c *ChatGroupConnector) fetchHistory(ctx context.Context, groupID string, beforeID int64) ([]GroupMessage, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		page, err := c.session.History(ctx, groupID, beforeID, c.pageSize)
		if err == nil {
			return page, nil
		}
		lastErr = err
		c.log.Warn("chat group transient error", "group", groupID, "attempt", attempt+1, "error", err)
		if attempt < c.maxRetries-1 {
			sleepFunc(ctx, backoffDelay(c.backoffBase, attempt))
		}
	}
	return nil, lastErr
}
