package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanPublisher struct {
	ch chan Batch
}

func (p *chanPublisher) PublishMessage(_ context.Context, _ string, payload interface{}) error {
	p.ch <- payload.(Batch)
	return nil
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Format: "json", Output: "stdout"})
	assert.Error(t, err)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	l.Info("scan finished", String("session", "premarket"), Float64("gap_percent", 26.6), Int("gaps", 2))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"session":"premarket"`)
	assert.Contains(t, string(b), `"gap_percent":26.6`)
}

func quoteFailed(l *Logger) {
	l.Error("quote failed", String("symbol", "KLTO"), Error(errors.New("boom")))
}

func TestCollectorAggregatesErrors(t *testing.T) {
	pub := &chanPublisher{ch: make(chan Batch, 1)}
	l := NewNop()
	l.AddCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 2,
		Topic:          "logs",
		Publisher:      pub,
	})
	defer l.RemoveCollector()

	// same error from two different call sites
	l.Error("quote failed", String("symbol", "KLTO"), Error(errors.New("boom")))
	quoteFailed(l)
	l.Error("news failed", String("symbol", "KZIA"))

	select {
	case b := <-pub.ch:
		require.Len(t, b.Entries, 2)
		assert.Equal(t, "quote failed", b.Entries[0].Message)
		assert.Equal(t, 2, b.Entries[0].Count)
		assert.Equal(t, "KLTO", b.Entries[0].Symbol)
		assert.Contains(t, b.Entries[0].Caller, "logger_test.go")
		assert.Equal(t, "news failed", b.Entries[1].Message)
		assert.Equal(t, 1, b.Entries[1].Count)
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not flush")
	}
}

func TestCollectorKeepsDistinctFieldsApart(t *testing.T) {
	assert.Equal(t,
		digestKey("error", "quote failed", map[string]interface{}{"symbol": "KLTO", "status": 502}),
		digestKey("error", "quote failed", map[string]interface{}{"status": 502, "symbol": "KLTO"}))
	assert.NotEqual(t,
		digestKey("error", "quote failed", map[string]interface{}{"symbol": "KLTO"}),
		digestKey("error", "quote failed", map[string]interface{}{"symbol": "KZIA"}))
}

func TestCollectorFlushesOnClose(t *testing.T) {
	pub := &chanPublisher{ch: make(chan Batch, 1)}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Publisher: pub})

	l.Error("history fetch failed", String("symbol", "KLTO"))
	l.RemoveCollector()

	select {
	case b := <-pub.ch:
		require.Len(t, b.Entries, 1)
		assert.Equal(t, "history fetch failed", b.Entries[0].Message)
	default:
		t.Fatal("pending digest not published on close")
	}
}
