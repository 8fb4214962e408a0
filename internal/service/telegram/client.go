package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	drepo "GapScout/internal/domain/repository"
	"GapScout/pkg/config"
	xhttp "GapScout/pkg/http"
	"GapScout/pkg/logger"
)

// MaxMessageLen is the Bot API limit for a single message.
const MaxMessageLen = 4096

var ErrNotConfigured = errors.New("telegram: bot token or chat id missing")

// Client sends Markdown messages to one chat through the Bot API.
type Client struct {
	http    *xhttp.Client
	baseURL string
	token   string
	chatID  string
	log     *logger.Logger
}

var _ drepo.AlertSink = (*Client)(nil)

func New(cfg *config.Config, log *logger.Logger, opts ...xhttp.ClientOption) *Client {
	t := cfg.Telegram
	if log == nil {
		log = logger.NewNop()
	}
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(t.Timeout)}, opts...)
	return &Client{
		http:    xhttp.NewClient(opts...),
		baseURL: strings.TrimRight(t.BaseURL, "/"),
		token:   t.BotToken,
		chatID:  t.ChatID,
		log:     log.With(logger.String("sink", "telegram")),
	}
}

func (c *Client) Name() string { return "telegram" }

func (c *Client) Enabled() bool { return c.token != "" && c.chatID != "" }

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (c *Client) Send(ctx context.Context, text string) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}

	var resp apiResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token),
		Headers: map[string]string{"Content-Type": "application/json"},
		Body: sendMessageRequest{
			ChatID:                c.chatID,
			Text:                  truncate(text, MaxMessageLen),
			ParseMode:             "Markdown",
			DisableWebPagePreview: true,
		},
	}, &resp)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram send: %s", resp.Description)
	}
	c.log.Debug("message sent", logger.Int("length", len(text)))
	return nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
