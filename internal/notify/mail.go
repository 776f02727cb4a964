package notify

import (
	"context"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/bazaarlab/storefront/config"
)

// MailSender sends a copy of staff messages over SMTP.
type MailSender struct {
	dialer  *gomail.Dialer
	from    string
	to      []string
	subject string
}

func NewMailSender(cfg config.MailConfig) *MailSender {
	return &MailSender{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Passwd),
		from:    cfg.From,
		to:      cfg.To,
		subject: "New storefront order",
	}
}

func (s *MailSender) Channel() string {
	return "mail"
}

func (s *MailSender) Recipients() []string {
	return s.to
}

func (s *MailSender) Send(ctx context.Context, to, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", s.subject)
	m.SetBody("text/html", strings.ReplaceAll(text, "\n", "<br>\n"))
	return s.dialer.DialAndSend(m)
}
