package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.SlackConfig{
		APIBaseURL:     server.URL,
		ClientID:       "client-id",
		ClientSecret:   "client-secret",
		MonitorChannel: "#monitoring",
		MonitorToken:   "xoxb-monitor",
	}
	return NewClient(cfg, zap.NewNop())
}

func TestPostMessage(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat.postMessage", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
	}))

	err := client.PostMessage(context.Background(), "xoxb-bot", "U123", "hello", []Attachment{
		{Color: ColorGood, Text: "all good"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer xoxb-bot", gotAuth)
	assert.Equal(t, "U123", gotBody["channel"])
	assert.Equal(t, "hello", gotBody["text"])
	assert.Len(t, gotBody["attachments"], 1)
}

func TestPostMessageRejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": "channel_not_found"})
	}))

	err := client.PostMessage(context.Background(), "xoxb-bot", "U123", "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestPostMessageDeliveryDisabled(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	cfg := &config.SlackConfig{APIBaseURL: server.URL, DisableDelivery: true}
	client := NewClient(cfg, zap.NewNop())

	err := client.PostMessage(context.Background(), "xoxb-bot", "U123", "hello", nil)
	require.NoError(t, err)
	assert.False(t, called)
}

func TestPostToMonitor(t *testing.T) {
	var gotBody map[string]interface{}
	var gotAuth string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
	}))

	err := client.PostToMonitor(context.Background(), "heads up", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer xoxb-monitor", gotAuth)
	assert.Equal(t, "#monitoring", gotBody["channel"])
}

func TestLookupUserByEmail(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users.lookupByEmail", r.URL.Path)
		require.Equal(t, "anna@example.com", r.URL.Query().Get("email"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":   true,
			"user": map[string]string{"id": "U123"},
		})
	}))

	userID, err := client.LookupUserByEmail(context.Background(), "xoxb-bot", "anna@example.com")
	require.NoError(t, err)
	assert.Equal(t, "U123", userID)
}

func TestLookupUserByEmailNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": "users_not_found"})
	}))

	_, err := client.LookupUserByEmail(context.Background(), "xoxb-bot", "nobody@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "users_not_found")
}

func TestExchangeOAuthCode(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth.access", r.URL.Path)
		require.Equal(t, "client-id", r.URL.Query().Get("client_id"))
		require.Equal(t, "client-secret", r.URL.Query().Get("client_secret"))
		require.Equal(t, "tmp-code", r.URL.Query().Get("code"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":           true,
			"team_name":    "Acme",
			"team_id":      "T999",
			"access_token": "xoxp-app",
			"bot":          map[string]string{"bot_access_token": "xoxb-bot"},
		})
	}))

	token, err := client.ExchangeOAuthCode(context.Background(), "tmp-code")
	require.NoError(t, err)
	assert.Equal(t, "Acme", token.TeamName)
	assert.Equal(t, "T999", token.TeamID)
	assert.Equal(t, "xoxp-app", token.AppToken)
	assert.Equal(t, "xoxb-bot", token.BotToken)
}
