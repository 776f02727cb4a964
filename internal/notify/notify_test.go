package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaarlab/storefront/config"
	"github.com/bazaarlab/storefront/internal/checkout"
	"github.com/bazaarlab/storefront/internal/domain"
	"github.com/bazaarlab/storefront/pkg/metrics"
)

// fakeBotAPI accepts sendMessage calls and fails for the chat ids in failing.
type fakeBotAPI struct {
	mu       sync.Mutex
	received []map[string]interface{}
	paths    []string
	failing  map[string]bool
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var payload map[string]interface{}
	_ = jsoniter.Unmarshal(body, &payload)
	f.mu.Lock()
	f.received = append(f.received, payload)
	f.paths = append(f.paths, r.URL.Path)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if chat, _ := payload["chat_id"].(string); f.failing[chat] {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
}

func newTelegram(t *testing.T, api *fakeBotAPI, chats ...string) *TelegramSender {
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return NewTelegramSender(config.TelegramConfig{
		ApiBase: srv.URL + "/",
		Token:   "123:abc",
		ChatIds: chats,
	}, 2*time.Second, srv.Client())
}

func sampleOrder() (*domain.OrderUser, []checkout.DetailLine) {
	order := &domain.OrderUser{
		ID:         7,
		Reference:  "5f0c6d1e-2c1b-4d8e-9a57-3f1f0b7d4c11",
		Name:       "<b>Ali</b> & co",
		Phone:      "+998901234567",
		TotalPrice: 210,
		CreatedAt:  time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
	}
	lines := []checkout.DetailLine{
		{Index: 1, Title: "Куртка", Count: 2, UnitPrice: 80, LineTotal: 160},
		{Index: 2, Title: "Шапка", Count: 1, UnitPrice: 50, LineTotal: 50},
	}
	return order, lines
}

func TestRenderOrder(t *testing.T) {
	order, lines := sampleOrder()
	text, err := RenderOrder(order, lines)
	require.NoError(t, err)

	assert.Contains(t, text, "<b>New order #7</b>")
	assert.Contains(t, text, "&lt;b&gt;Ali&lt;/b&gt; &amp; co")
	assert.NotContains(t, text, "<b>Ali</b>")
	assert.Contains(t, text, "1. Куртка\n    2 x 80 = 160")
	assert.Contains(t, text, "2. Шапка\n    1 x 50 = 50")
	assert.Contains(t, text, "<b>Total:</b> 210")
	assert.Contains(t, text, "<b>Address:</b> -")
	assert.Contains(t, text, "2024-03-01 10:30")
}

func TestTelegramSender(t *testing.T) {
	api := &fakeBotAPI{failing: map[string]bool{"2": true}}
	tg := newTelegram(t, api, "1", "2")

	require.NoError(t, tg.Send(context.Background(), "1", "hello"))
	err := tg.Send(context.Background(), "2", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")

	require.Len(t, api.received, 2)
	assert.Equal(t, "/bot123:abc/sendMessage", api.paths[0])
	assert.Equal(t, "HTML", api.received[0]["parse_mode"])
	assert.Equal(t, "hello", api.received[0]["text"])
}

type stubSender struct {
	channel string
	rcpts   []string
	fail    map[string]error
	mu      sync.Mutex
	sent    []string
}

func (s *stubSender) Channel() string      { return s.channel }
func (s *stubSender) Recipients() []string { return s.rcpts }
func (s *stubSender) Send(_ context.Context, rcpt, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, rcpt)
	if s.fail[rcpt] != nil {
		return s.fail[rcpt]
	}
	if rcpt == "boom" {
		panic("sender exploded")
	}
	return nil
}

func TestDispatchIsBestEffort(t *testing.T) {
	require.NoError(t, metrics.InitMetrics(""))
	t.Cleanup(func() { _ = metrics.Close() })

	mail := &stubSender{channel: "mail", rcpts: []string{"a@shop.uz", "boom", "b@shop.uz"},
		fail: map[string]error{"a@shop.uz": errors.New("smtp down")}}
	api := &fakeBotAPI{failing: map[string]bool{"2": true}}
	d := NewDispatcher(time.Second, newTelegram(t, api, "1", "2", "3"), mail)
	assert.Equal(t, 6, d.RecipientCount())

	results := d.Dispatch(context.Background(), "test")
	require.Len(t, results, 6)

	ok := map[string]bool{}
	for _, r := range results {
		ok[r.Channel+":"+r.Recipient] = r.Ok
	}
	assert.Equal(t, map[string]bool{
		"telegram:1": true, "telegram:2": false, "telegram:3": true,
		"mail:a@shop.uz": false, "mail:boom": false, "mail:b@shop.uz": true,
	}, ok)
	assert.Equal(t, []string{"a@shop.uz", "boom", "b@shop.uz"}, mail.sent)
	assert.Equal(t, int64(3), metrics.Current(metrics.NotifyFailed))
	assert.Equal(t, int64(3), metrics.Current(metrics.NotifySent))
}

func TestAsyncNotifier(t *testing.T) {
	api := &fakeBotAPI{failing: map[string]bool{"2": true}}
	d := NewDispatcher(time.Second, newTelegram(t, api, "1", "2"))
	n, err := NewAsyncNotifier(d, 2)
	require.NoError(t, err)

	order, lines := sampleOrder()
	n.OrderPlaced(context.Background(), order, lines)
	n.OrderPlaced(context.Background(), order, lines)
	n.Release()

	require.Len(t, api.received, 4)
	for _, msg := range api.received {
		text, _ := msg["text"].(string)
		assert.True(t, strings.HasPrefix(text, "<b>New order #7</b>"))
	}
}

func TestSyncNotifierWithoutChannels(t *testing.T) {
	d := NewDispatcherFromConfig(config.NotifyConfig{Timeout: time.Second})
	assert.Zero(t, d.RecipientCount())
	order, lines := sampleOrder()
	NewSyncNotifier(d).OrderPlaced(context.Background(), order, lines)
}
