// Package mail delivers the plain-text emails the auth service sends.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

var ErrInvalidMessage = errors.New("mail: invalid message")

type Message struct {
	To      string
	Subject string
	Body    string
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" || strings.TrimSpace(m.Subject) == "" {
		return ErrInvalidMessage
	}
	// Header injection.
	if strings.ContainsAny(m.To, "\r\n") || strings.ContainsAny(m.Subject, "\r\n") {
		return ErrInvalidMessage
	}
	return nil
}

// Sender delivers a message. Failures are returned to the caller and never
// retried here.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPOptions configures an SMTPSender.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPSender opens one connection per message. Every network read and write
// is bounded by Timeout, and the whole exchange by the caller's context.
type SMTPSender struct {
	opts SMTPOptions
}

func NewSMTPSender(opts SMTPOptions) (*SMTPSender, error) {
	if opts.Host == "" {
		return nil, errors.New("mail: smtp host is required")
	}
	if opts.From == "" {
		return nil, errors.New("mail: from address is required")
	}
	if opts.Port == 0 {
		opts.Port = 587
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &SMTPSender{opts: opts}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	m, err := s.compose(msg)
	if err != nil {
		return err
	}

	client, err := s.client()
	if err != nil {
		return fmt.Errorf("mail: configure smtp client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("mail: send to smtp %s:%d: %w", s.opts.Host, s.opts.Port, err)
	}
	return nil
}

// compose builds the MIME message. Headers are RFC 2047 encoded so
// organisation names outside ASCII survive the Subject line.
func (s *SMTPSender) compose(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(s.opts.From); err != nil {
		return nil, fmt.Errorf("%w: from: %v", ErrInvalidMessage, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("%w: to: %v", ErrInvalidMessage, err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return m, nil
}

func (s *SMTPSender) client() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithPort(s.opts.Port),
		gomail.WithTimeout(s.opts.Timeout),
		gomail.WithDialContextFunc(s.dial),
	}
	if s.opts.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.opts.Username),
			gomail.WithPassword(s.opts.Password),
		)
	}
	return gomail.NewClient(s.opts.Host, opts...)
}

// dial puts a deadline on the connection itself, so a server that accepts
// and then stalls cannot hold the exchange open past Timeout.
func (s *SMTPSender) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	d := net.Dialer{Timeout: s.opts.Timeout}
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(s.opts.Timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// LogSender writes messages to the request logger instead of delivering
// them. It is used when no SMTP host is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("mail delivery disabled, message dropped",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}
