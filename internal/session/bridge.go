// Package session connects to the local chat-group gateway that owns the
// persistent authenticated session. The gateway must have completed its
// interactive login before a run starts; the pipeline checks Authorized
// and refuses to harvest otherwise.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/anditomara/chatpulse/internal/model"
	"github.com/anditomara/chatpulse/internal/scrape"
)

// BridgeClient implements scrape.GroupSession over the gateway's HTTP API.
type BridgeClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ scrape.GroupSession = (*BridgeClient)(nil)

// NewBridgeClient wires a client onto the gateway.
func NewBridgeClient(cfg model.SessionConfig, timeout time.Duration) *BridgeClient {
	return &BridgeClient{
		baseURL:    cfg.BridgeURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Authorized reports whether the gateway holds a live authorized session.
func (c *BridgeClient) Authorized(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/session/status", nil)
	if err != nil {
		return false
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var status struct {
		Authorized bool `json:"authorized"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false
	}
	return status.Authorized
}

// bridgeMessage is the gateway's wire shape for one group message.
type bridgeMessage struct {
	ID     int64     `json:"id"`
	Text   string    `json:"text"`
	Date   time.Time `json:"date"`
	FromID string    `json:"from_id"`
	Links  []string  `json:"links"`
}

// History returns one page of group history, newest first. beforeID=0
// requests the latest page.
func (c *BridgeClient) History(ctx context.Context, groupID string, beforeID int64, limit int) ([]scrape.GroupMessage, error) {
	endpoint := fmt.Sprintf("%s/groups/%s/history", c.baseURL, url.PathEscape(groupID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("limit", strconv.Itoa(limit))
	if beforeID > 0 {
		q.Set("before_id", strconv.FormatInt(beforeID, 10))
	}
	req.URL.RawQuery = q.Encode()
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway status %d", resp.StatusCode)
	}

	var payload struct {
		Messages []bridgeMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	page := make([]scrape.GroupMessage, len(payload.Messages))
	for i, m := range payload.Messages {
		page[i] = scrape.GroupMessage{
			ID:       m.ID,
			Text:     m.Text,
			Date:     m.Date,
			AuthorID: m.FromID,
			Links:    m.Links,
		}
	}
	return page, nil
}

func (c *BridgeClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
