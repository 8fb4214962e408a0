package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"GapScout/pkg/config"
	"GapScout/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	trades := decode([]byte(`{"type":"trade","data":[{"s":"KLTO","p":2.72,"v":100,"t":1792412100123}]}`))
	require.Len(t, trades, 1)
	assert.Equal(t, "KLTO", trades[0].Symbol)
	assert.Equal(t, 2.72, trades[0].Price)
	assert.Equal(t, int64(1792412100), trades[0].Timestamp)

	assert.Nil(t, decode([]byte(`{"type":"ping"}`)))
	assert.Nil(t, decode([]byte(`not json`)))
}

func TestStreamSubscribeAndRead(t *testing.T) {
	subs := make(chan string, 4)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var msg map[string]string
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		subs <- msg["symbol"]
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"trade","data":[{"s":"KLTO","p":2.8,"v":50,"t":1792412100000}]}`))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Finnhub.APIKey = "tok"
	cfg.Finnhub.Stream.WebSocketURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	s := NewStream(cfg, logger.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.ErrorIs(t, s.Subscribe(ctx, []string{"KLTO"}), ErrNotConnected)
	require.NoError(t, s.Connect(ctx))
	assert.True(t, s.IsConnected())
	require.NoError(t, s.Subscribe(ctx, []string{"klto"}))
	assert.Equal(t, "KLTO", <-subs)

	trades, _ := s.Read(ctx)
	select {
	case tr := <-trades:
		require.NotNil(t, tr)
		assert.Equal(t, "KLTO", tr.Symbol)
		assert.Equal(t, 2.8, tr.Price)
	case <-ctx.Done():
		t.Fatal("no trade received")
	}

	require.NoError(t, s.Close())
	assert.False(t, s.IsConnected())
}
