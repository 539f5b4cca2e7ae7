package notify

import (
	"context"
	"errors"
	"net"
	"net/smtp"

	"github.com/jordan-wright/email"

	"marketplace-payments/internal/config"
	"marketplace-payments/internal/domain/ports/adapter"
)

var _ adapter.OpsAlerter = (*EmailAlerter)(nil)

type mailer func(e *email.Email, addr string, auth smtp.Auth) error

// EmailAlerter mails alerts to the operations list.
type EmailAlerter struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	send mailer
}

func NewEmailAlerter(cfg config.EmailConfig) (*EmailAlerter, error) {
	if cfg.SMTPAddr == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil, errors.New("email alerter needs smtp_addr, from and to")
	}
	host, _, err := net.SplitHostPort(cfg.SMTPAddr)
	if err != nil {
		return nil, err
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}
	return &EmailAlerter{
		addr: cfg.SMTPAddr,
		auth: auth,
		from: cfg.From,
		to:   cfg.To,
		send: func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}, nil
}

func (a *EmailAlerter) Alert(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := email.NewEmail()
	e.From = a.from
	e.To = a.to
	e.Subject = "[payments] " + subject
	e.Text = []byte(body)
	return a.send(e, a.addr, a.auth)
}
