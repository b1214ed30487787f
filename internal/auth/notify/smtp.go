package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

const defaultSMTPTimeout = 15 * time.Second

// SMTPMailer sends mail through an SMTP relay. PLAIN auth is used when a
// username is set, and STARTTLS whenever the relay offers it.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		Timeout:  defaultSMTPTimeout,
	}
}

var errHeaderInjection = errors.New("notify: header value contains a line break")

// SendEmail delivers one plain-text message. The relay connection is closed
// as soon as ctx is done, so a stalled relay cannot hold the request.
func (m *SMTPMailer) SendEmail(ctx context.Context, to, subject, text string) error {
	for _, v := range []string{to, subject} {
		if strings.ContainsAny(v, "\r\n") {
			return errHeaderInjection
		}
	}

	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return fmt.Errorf("notify: sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("notify: recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, text)

	client, err := m.client(ctx)
	if err != nil {
		return fmt.Errorf("notify: smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}
		return fmt.Errorf("notify: smtp send to %s: %w", to, err)
	}
	return nil
}

func (m *SMTPMailer) client(ctx context.Context) (*mail.Client, error) {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}

	opts := []mail.Option{
		mail.WithPort(m.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(timeout),
		mail.WithDialContextFunc(func(dialCtx context.Context, network, addr string) (net.Conn, error) {
			var d net.Dialer
			conn, err := d.DialContext(dialCtx, network, addr)
			if err != nil {
				return nil, err
			}
			context.AfterFunc(ctx, func() { _ = conn.Close() })
			return conn, nil
		}),
	}
	if m.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.Username),
			mail.WithPassword(m.Password),
		)
	}
	return mail.NewClient(m.Host, opts...)
}
