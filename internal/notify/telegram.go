package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/guonaihong/gout"

	"github.com/bazaarlab/storefront/config"
)

// Sender delivers one text to one recipient of a channel.
type Sender interface {
	Channel() string
	Recipients() []string
	Send(ctx context.Context, recipient, text string) error
}

type telegramResponse struct {
	Ok          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// TelegramSender posts messages through the Bot API sendMessage method.
type TelegramSender struct {
	client  *http.Client
	apiBase string
	token   string
	chatIds []string
	timeout time.Duration
}

func NewTelegramSender(cfg config.TelegramConfig, timeout time.Duration, client *http.Client) *TelegramSender {
	if client == nil {
		client = &http.Client{}
	}
	return &TelegramSender{
		client:  client,
		apiBase: strings.TrimRight(cfg.ApiBase, "/"),
		token:   cfg.Token,
		chatIds: cfg.ChatIds,
		timeout: timeout,
	}
}

func (s *TelegramSender) Channel() string {
	return "telegram"
}

func (s *TelegramSender) Recipients() []string {
	return s.chatIds
}

func (s *TelegramSender) Send(ctx context.Context, chatID, text string) error {
	var resp telegramResponse
	var code int
	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.token)
	df := gout.New(s.client).
		POST(url).
		SetJSON(gout.H{
			"chat_id":    chatID,
			"text":       text,
			"parse_mode": "HTML",
		}).
		BindJSON(&resp).
		Code(&code).
		WithContext(ctx)
	if s.timeout > 0 {
		df = df.SetTimeout(s.timeout)
	}
	if err := df.Do(); err != nil {
		if code != 0 && (code < 200 || code > 299) {
			return fmt.Errorf("telegram sendMessage: http %d", code)
		}
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	if code < 200 || code > 299 {
		return fmt.Errorf("telegram sendMessage: http %d %s", code, resp.Description)
	}
	if !resp.Ok {
		return fmt.Errorf("telegram sendMessage: %d %s", resp.ErrorCode, resp.Description)
	}
	return nil
}
