package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bazaarlab/storefront/config"
	"github.com/bazaarlab/storefront/pkg/metrics"
)

// Result outcome of one delivery attempt
type Result struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Ok        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

// Dispatcher sends a message once to every recipient of every sender.
// Deliveries are independent: a failure is logged and counted, never retried.
type Dispatcher struct {
	senders []Sender
	timeout time.Duration
}

func NewDispatcher(timeout time.Duration, senders ...Sender) *Dispatcher {
	return &Dispatcher{senders: senders, timeout: timeout}
}

// NewDispatcherFromConfig wires the channels that carry credentials.
func NewDispatcherFromConfig(cfg config.NotifyConfig) *Dispatcher {
	var senders []Sender
	if cfg.Telegram.Token != "" && len(cfg.Telegram.ChatIds) > 0 {
		senders = append(senders, NewTelegramSender(cfg.Telegram, cfg.Timeout, nil))
	}
	if cfg.Mail.Host != "" && len(cfg.Mail.To) > 0 {
		senders = append(senders, NewMailSender(cfg.Mail))
	}
	if len(senders) == 0 {
		zap.L().Warn("no notification channel configured", zap.String("namespace", "notify"))
	}
	return NewDispatcher(cfg.Timeout, senders...)
}

// RecipientCount total number of deliveries a Dispatch makes
func (d *Dispatcher) RecipientCount() int {
	n := 0
	for _, s := range d.senders {
		n += len(s.Recipients())
	}
	return n
}

func (d *Dispatcher) Dispatch(ctx context.Context, text string) []Result {
	results := make([]Result, 0, d.RecipientCount())
	for _, s := range d.senders {
		for _, rcpt := range s.Recipients() {
			results = append(results, d.deliver(ctx, s, rcpt, text))
		}
	}
	return results
}

func (d *Dispatcher) deliver(ctx context.Context, s Sender, rcpt, text string) (res Result) {
	res = Result{Channel: s.Channel(), Recipient: rcpt}
	defer func() {
		if err := recover(); err != nil {
			zap.S().Errorf("notify %s panic: %v", s.Channel(), err)
			res.Ok = false
			res.Error = "panic"
			metrics.Incr(metrics.NotifyFailed, 1)
		}
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := s.Send(ctx, rcpt, text); err != nil {
		zap.L().Error("notification delivery failed",
			zap.String("namespace", "notify"),
			zap.String("channel", s.Channel()),
			zap.String("recipient", rcpt),
			zap.Error(err))
		metrics.Incr(metrics.NotifyFailed, 1)
		res.Error = err.Error()
		return res
	}
	metrics.Incr(metrics.NotifySent, 1)
	res.Ok = true
	return res
}
