// Package mailer delivers plain-text email.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/taskpro/backend/config"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// ErrDisabled is returned by senders that accept a message without delivering it.
var ErrDisabled = errors.New("email delivery disabled")

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SMTP sends mail through a configured SMTP relay.
type SMTP struct {
	cfg    config.EmailConfig
	client *mail.Client
}

// NewSMTP creates an SMTP sender from cfg.
func NewSMTP(cfg config.EmailConfig) (*SMTP, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUser),
			mail.WithPassword(cfg.SMTPPass),
		)
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTP{cfg: cfg, client: client}, nil
}

// Send delivers m.
func (s *SMTP) Send(ctx context.Context, m Message) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.FromAddress); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Body)
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// Log writes messages to the logger instead of sending them. Used when SMTP is not configured.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a logging sender.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

// Send logs m and returns ErrDisabled.
func (l *Log) Send(_ context.Context, m Message) error {
	l.logger.Info("email not sent, smtp disabled",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
	)
	return ErrDisabled
}

// New returns an SMTP sender when cfg enables it, otherwise a logging sender.
func New(cfg config.EmailConfig, logger *zap.Logger) (Sender, error) {
	if !cfg.Enabled() {
		return NewLog(logger), nil
	}
	return NewSMTP(cfg)
}
