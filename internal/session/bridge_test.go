package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anditomara/chatpulse/internal/model"
)

func newTestClient(baseURL string) *BridgeClient {
	return NewBridgeClient(model.SessionConfig{BridgeURL: baseURL, Token: "secret"}, 5*time.Second)
}

func TestBridgeClient_Authorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/session/status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		fmt.Fprint(w, `{"authorized": true}`)
	}))
	defer server.Close()

	if !newTestClient(server.URL).Authorized(context.Background()) {
		t.Error("expected authorized session")
	}
}

func TestBridgeClient_NotAuthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"authorized": false}`)
	}))
	defer server.Close()

	if newTestClient(server.URL).Authorized(context.Background()) {
		t.Error("expected unauthorized session")
	}
}

func TestBridgeClient_AuthorizedGatewayDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	server.Close()

	if newTestClient(server.URL).Authorized(context.Background()) {
		t.Error("expected false when the gateway is unreachable")
	}
}

func TestBridgeClient_History(t *testing.T) {
	ts := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups/dev-group/history" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "100" {
			t.Errorf("unexpected limit %q", got)
		}
		if got := r.URL.Query().Get("before_id"); got != "42" {
			t.Errorf("unexpected before_id %q", got)
		}
		fmt.Fprintf(w, `{"messages": [
			{"id": 41, "text": "handoff notes", "date": %q, "from_id": "u7", "links": ["https://example.com"]}
		]}`, ts.Format(time.RFC3339))
	}))
	defer server.Close()

	page, err := newTestClient(server.URL).History(context.Background(), "dev-group", 42, 100)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("expected 1 message, got %d", len(page))
	}
	m := page[0]
	if m.ID != 41 || m.Text != "handoff notes" || m.AuthorID != "u7" {
		t.Errorf("unexpected message %+v", m)
	}
	if !m.Date.Equal(ts) {
		t.Errorf("expected date %v, got %v", ts, m.Date)
	}
}

func TestBridgeClient_HistoryOmitsZeroCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("before_id") {
			t.Error("before_id must be omitted for the latest page")
		}
		fmt.Fprint(w, `{"messages": []}`)
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).History(context.Background(), "dev-group", 0, 100); err != nil {
		t.Fatalf("History failed: %v", err)
	}
}

func TestBridgeClient_HistoryErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).History(context.Background(), "dev-group", 0, 100); err == nil {
		t.Error("expected error for gateway failure status")
	}
}
