package email

import (
	"context"

	"gopkg.in/gomail.v2"
)

type Config struct {
	Host    string
	Port    int
	User    string
	Pass    string
	From    string
	Subject string
}

// Sender delivers messages over SMTP.
type Sender struct {
	dialer  *gomail.Dialer
	from    string
	subject string
}

func NewSender(cfg Config) *Sender {
	return &Sender{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
		from:    cfg.From,
		subject: cfg.Subject,
	}
}

// Send delivers one message. gomail has no context support, so the dial runs
// in a goroutine and the caller's deadline is honored by abandoning it.
func (s *Sender) Send(ctx context.Context, identifier, message string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", identifier)
	m.SetHeader("Subject", s.subject)
	m.SetBody("text/plain", message)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
