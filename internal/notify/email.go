package notify

import (
	"context"
	"errors"
	"net"
	"net/smtp"
	"strconv"

	"github.com/harrylevesque/csms/internal/config"
	"github.com/jordan-wright/email"
)

// EmailNotifier sends alert mail over SMTP. There is no retry.
type EmailNotifier struct {
	cfg  config.EmailConfig
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{
		cfg: cfg,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

func (n *EmailNotifier) Name() string { return "Email" }

func (n *EmailNotifier) Notify(ctx context.Context, msg Message) error {
	if len(n.cfg.To) == 0 {
		return errors.New("no recipients configured")
	}
	e := email.NewEmail()
	e.From = n.cfg.From
	e.To = n.cfg.To
	e.Subject = msg.Subject
	e.Text = []byte(msg.Body)

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))

	done := make(chan error, 1)
	go func() { done <- n.send(e, addr, auth) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
