package scrape

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anditomara/chatpulse/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastSleep(t *testing.T) {
	t.Helper()
	orig := sleepFunc
	sleepFunc = func(ctx context.Context, d time.Duration) {}
	t.Cleanup(func() { sleepFunc = orig })
}

type wireMessage struct {
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

func wireMsg(id, content string, ts time.Time) wireMessage {
	m := wireMessage{ID: id, Content: content, Timestamp: ts.Format(time.RFC3339Nano)}
	m.Author.ID = "42"
	m.Author.Username = "alice"
	return m
}

func newChannelConnector(baseURL string, scrape model.ScrapeConfig, window time.Duration) *ChannelConnector {
	return NewChannelConnector(
		model.ChannelConfig{BaseURL: baseURL, Token: "tok"},
		scrape, window, nil, testLogger(),
	)
}

func TestChannelConnector_PaginatesWithBeforeCursor(t *testing.T) {
	fastSleep(t)
	now := time.Now().UTC()

	var befores []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/channels/general/messages") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		before := r.URL.Query().Get("before")
		befores = append(befores, before)

		var page []wireMessage
		switch before {
		case "":
			page = []wireMessage{
				wireMsg("5", "bridge audit published", now.Add(-time.Minute)),
				wireMsg("4", "validator set rotated", now.Add(-2*time.Minute)),
			}
		case "4":
			page = []wireMessage{
				wireMsg("3", "governance vote opened", now.Add(-3*time.Minute)),
			}
		default:
			t.Errorf("unexpected before cursor %q", before)
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	c := newChannelConnector(server.URL, model.ScrapeConfig{PageSize: 2, MaxRetries: 3, Timeout: 5 * time.Second}, 24*time.Hour)
	msgs, stats := c.Harvest(context.Background(), "general")

	if !stats.Success {
		t.Fatalf("harvest failed: %s", stats.Error)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if len(befores) != 2 || befores[0] != "" || befores[1] != "4" {
		t.Errorf("unexpected cursor sequence %v", befores)
	}
	if msgs[0].Author != "alice#42" {
		t.Errorf("unexpected author %q", msgs[0].Author)
	}
}

func TestChannelConnector_HaltsAtWindowCutoff(t *testing.T) {
	fastSleep(t)
	now := time.Now().UTC()

	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		page := []wireMessage{
			wireMsg("2", "inside the window", now.Add(-time.Hour)),
			wireMsg("1", "way too old", now.Add(-72*time.Hour)),
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	c := newChannelConnector(server.URL, model.ScrapeConfig{PageSize: 2, MaxRetries: 3, Timeout: 5 * time.Second}, 24*time.Hour)
	msgs, stats := c.Harvest(context.Background(), "general")

	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("expected iteration to stop after the cutoff page, got %d requests", got)
	}
	if stats.Pulled != 1 || len(msgs) != 1 {
		t.Errorf("expected 1 pulled / 1 kept, got %d/%d", stats.Pulled, len(msgs))
	}
	if len(msgs) == 1 && msgs[0].ID != "2" {
		t.Errorf("expected the in-window message, got id %s", msgs[0].ID)
	}
}

func TestChannelConnector_RateLimitRetriesSamePage(t *testing.T) {
	now := time.Now().UTC()

	var waits []time.Duration
	orig := sleepFunc
	sleepFunc = func(ctx context.Context, d time.Duration) { waits = append(waits, d) }
	t.Cleanup(func() { sleepFunc = orig })

	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.Header().Set("Retry-After", "0.5")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode([]wireMessage{wireMsg("1", "post-limit message", now.Add(-time.Minute))})
	}))
	defer server.Close()

	c := newChannelConnector(server.URL, model.ScrapeConfig{PageSize: 100, MaxRetries: 3, Timeout: 5 * time.Second}, 24*time.Hour)
	msgs, stats := c.Harvest(context.Background(), "general")

	if !stats.Success {
		t.Fatalf("harvest failed: %s", stats.Error)
	}
	if len(msgs) != 1 {
		t.Errorf("expected 1 message after the rate limit cleared, got %d", len(msgs))
	}
	if len(waits) != 1 || waits[0] != 500*time.Millisecond {
		t.Errorf("expected one 500ms wait from Retry-After, got %v", waits)
	}
}

func TestChannelConnector_TerminalStatusFailsWithoutRetry(t *testing.T) {
	fastSleep(t)

	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := newChannelConnector(server.URL, model.ScrapeConfig{PageSize: 100, MaxRetries: 3, Timeout: 5 * time.Second}, 24*time.Hour)
	msgs, stats := c.Harvest(context.Background(), "locked")

	if stats.Success {
		t.Fatal("expected failure for forbidden channel")
	}
	if len(msgs) != 0 {
		t.Errorf("expected no messages, got %d", len(msgs))
	}
	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("terminal status must not retry, got %d requests", got)
	}
}

func TestChannelConnector_TransientErrorsRetryThenSucceed(t *testing.T) {
	fastSleep(t)
	now := time.Now().UTC()

	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]wireMessage{wireMsg("1", "finally a clean page", now.Add(-time.Minute))})
	}))
	defer server.Close()

	c := newChannelConnector(server.URL, model.ScrapeConfig{PageSize: 100, MaxRetries: 3, Timeout: 5 * time.Second}, 24*time.Hour)
	msgs, stats := c.Harvest(context.Background(), "general")

	if !stats.Success {
		t.Fatalf("harvest failed: %s", stats.Error)
	}
	if len(msgs) != 1 {
		t.Errorf("expected 1 message, got %d", len(msgs))
	}
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Errorf("expected 3 requests, got %d", got)
	}
}

func TestChannelConnector_TransientErrorsExhaustAttempts(t *testing.T) {
	fastSleep(t)

	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newChannelConnector(server.URL, model.ScrapeConfig{PageSize: 100, MaxRetries: 3, Timeout: 5 * time.Second}, 24*time.Hour)
	_, stats := c.Harvest(context.Background(), "general")

	if stats.Success {
		t.Fatal("expected failure after attempts exhaust")
	}
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestChannelConnector_FiltersLowValueAndCollectsLinks(t *testing.T) {
	fastSleep(t)
	now := time.Now().UTC()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		withEmbed := wireMsg("2", "incident postmortem attached", now.Add(-time.Minute))
		withEmbed.Embeds = []struct {
			URL string `json:"url"`
		}{{URL: "https://example.com/postmortem"}}

		json.NewEncoder(w).Encode([]wireMessage{
			withEmbed,
			wireMsg("1", "gm", now.Add(-2*time.Minute)),
		})
	}))
	defer server.Close()

	c := newChannelConnector(server.URL, model.ScrapeConfig{PageSize: 100, MaxRetries: 3, Timeout: 5 * time.Second}, 24*time.Hour)
	msgs, stats := c.Harvest(context.Background(), "general")

	if stats.Pulled != 2 || stats.Kept != 1 {
		t.Errorf("expected pulled=2 kept=1, got %d/%d", stats.Pulled, stats.Kept)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if len(msgs[0].Links) != 1 || msgs[0].Links[0] != "https://example.com/postmortem" {
		t.Errorf("expected embed link collected, got %v", msgs[0].Links)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", time.Second},
		{"2", 2 * time.Second},
		{"0.25", 250 * time.Millisecond},
		{"garbage", time.Second},
		{"-1", time.Second},
	}
	for _, tt := range tests {
		if got := retryAfter(tt.header); got != tt.want {
			t.Errorf("retryAfter(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestBackoffDelay(t *testing.T) {
	base := 100 * time.Millisecond
	for attempt, want := range []time.Duration{base, 2 * base, 4 * base} {
		if got := backoffDelay(base, attempt); got != want {
			t.Errorf("backoffDelay(%v, %d) = %v, want %v", base, attempt, got, want)
		}
	}
	if got := backoffDelay(0, 1); got != 2*time.Second {
		t.Errorf("zero base should fall back to one second, got %v", got)
	}
}
