package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"GapScout/internal/domain/models"
	drepo "GapScout/internal/domain/repository"
	"GapScout/pkg/config"
	"GapScout/pkg/logger"

	"github.com/gorilla/websocket"
)

var ErrNotConnected = errors.New("finnhub stream not connected")

// Stream implements MarketStream over the Finnhub trade websocket.
type Stream struct {
	apiKey         string
	websocketURL   string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	symbols   []string
}

var _ drepo.MarketStream = (*Stream)(nil)

func NewStream(cfg *config.Config, log *logger.Logger) *Stream {
	s := cfg.Finnhub.Stream
	if log == nil {
		log = logger.NewNop()
	}
	return &Stream{
		apiKey:         cfg.Finnhub.APIKey,
		websocketURL:   s.WebSocketURL,
		reconnectDelay: s.ReconnectDelay,
		pingInterval:   s.PingInterval,
		log:            log.With(logger.String("client", "finnhub_ws")),
	}
}

// Connect dials the websocket.
func (c *Stream) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("finnhub connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.log.Info("connected")
	return nil
}

// Subscribe adds symbols to the live feed. They are replayed on Reconnect.
func (c *Stream) Subscribe(_ context.Context, symbols []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return ErrNotConnected
	}
	for _, s := range symbols {
		s = strings.ToUpper(s)
		if err := c.conn.WriteJSON(map[string]string{"type": "subscribe", "symbol": s}); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		if !contains(c.symbols, s) {
			c.symbols = append(c.symbols, s)
		}
	}
	c.log.Debug("subscribed", logger.Strings("symbols", symbols))
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type fhTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type fhMessage struct {
	Type string    `json:"type"`
	Data []fhTrade `json:"data"`
}

// decode turns a frame into trades. Non-trade frames yield nil.
func decode(b []byte) []*models.Trade {
	var m fhMessage
	if err := json.Unmarshal(b, &m); err != nil || m.Type != "trade" {
		return nil
	}
	out := make([]*models.Trade, 0, len(m.Data))
	for _, d := range m.Data {
		out = append(out, &models.Trade{Symbol: d.S, Timestamp: d.T / 1000, Price: d.P, Volume: d.V})
	}
	return out
}

func (c *Stream) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// Read streams trades until ctx ends or the connection fails.
func (c *Stream) Read(ctx context.Context) (<-chan *models.Trade, <-chan error) {
	trades := make(chan *models.Trade, 1024)
	errs := make(chan error, 1)
	conn := c.current()

	if c.pingInterval > 0 {
		go func() {
			ticker := time.NewTicker(c.pingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					c.mu.Lock()
					if c.conn == conn && conn != nil {
						_ = conn.WriteMessage(websocket.PingMessage, nil)
					}
					c.mu.Unlock()
				}
			}
		}()
	}

	go func() {
		defer close(trades)
		defer close(errs)
		if conn == nil {
			errs <- ErrNotConnected
			return
		}
		for {
			if ctx.Err() != nil {
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					errs <- fmt.Errorf("finnhub read: %w", err)
				}
				return
			}
			for _, t := range decode(b) {
				select {
				case trades <- t:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return trades, errs
}

// Reconnect closes, waits reconnectDelay, dials again and resubscribes.
func (c *Stream) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	syms := append([]string(nil), c.symbols...)
	c.mu.Unlock()
	return c.Subscribe(ctx, syms)
}

func (c *Stream) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Stream) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
