package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"GapScout/pkg/config"
	"GapScout/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Telegram.BaseURL = srv.URL
	cfg.Telegram.BotToken = "123:abc"
	cfg.Telegram.ChatID = "-100"
	return New(cfg, logger.NewNop())
}

func TestSend(t *testing.T) {
	var got sendMessageRequest
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	require.NoError(t, c.Send(context.Background(), "🚀 *$KLTO*"))
	assert.Equal(t, "-100", got.ChatID)
	assert.Equal(t, "🚀 *$KLTO*", got.Text)
	assert.Equal(t, "Markdown", got.ParseMode)
	assert.True(t, got.DisableWebPagePreview)
}

func TestSendAPIError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: can't parse entities"}`))
	})
	err := c.Send(context.Background(), "*broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't parse entities")
}

func TestSendNotConfigured(t *testing.T) {
	cfg := config.Default()
	c := New(cfg, nil)
	assert.False(t, c.Enabled())
	assert.ErrorIs(t, c.Send(context.Background(), "x"), ErrNotConfigured)
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("é", MaxMessageLen+10)
	out := truncate(long, MaxMessageLen)
	assert.Equal(t, MaxMessageLen, utf8.RuneCountInString(out))
	assert.Equal(t, "short", truncate("short", MaxMessageLen))
}
