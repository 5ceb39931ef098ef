// Package notify delivers rendered reports. Delivery is attempted once; a
// failure is returned to the caller wrapped in
// domain.ErrNotificationDeliveryFailed and never retried.
package notify

import (
	"context"
	"fmt"

	"github.com/dvloznov/household-budget/internal/config"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/wneessen/go-mail"
)

// Sink accepts a subject line and an HTML document.
type Sink interface {
	Send(ctx context.Context, subject, html string) error
}

// SMTPSink sends reports as HTML email.
type SMTPSink struct {
	cfg  config.SMTPConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewSMTPSink creates a sink for cfg. cfg must have Host, From and To set.
func NewSMTPSink(cfg config.SMTPConfig) *SMTPSink {
	s := &SMTPSink{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

func (s *SMTPSink) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{mail.WithPort(s.cfg.Port)}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func (s *SMTPSink) message(subject, html string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("from %q: %w", s.cfg.From, err)
	}
	if err := msg.To(s.cfg.To...); err != nil {
		return nil, fmt.Errorf("to %v: %w", s.cfg.To, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)
	return msg, nil
}

// Send builds the message and delivers it over SMTP.
func (s *SMTPSink) Send(ctx context.Context, subject, html string) error {
	log := logger.FromContext(ctx)

	msg, err := s.message(subject, html)
	if err != nil {
		return fmt.Errorf("Send: %w: %v", domain.ErrNotificationDeliveryFailed, err)
	}
	if err := s.send(ctx, msg); err != nil {
		log.Error().Err(err).Str("host", s.cfg.Host).Msg("Report email failed")
		return fmt.Errorf("Send: %w: %v", domain.ErrNotificationDeliveryFailed, err)
	}

	log.Info().Str("subject", subject).Strs("to", s.cfg.To).Msg("Report emailed")
	return nil
}

// LogSink writes the report to the context logger instead of sending it.
// Used when no SMTP host is configured.
type LogSink struct{}

func (LogSink) Send(ctx context.Context, subject, html string) error {
	log := logger.FromContext(ctx)
	log.Info().
		Str("subject", subject).
		Int("bytes", len(html)).
		Msg("Report not sent (no smtp host configured)")
	return nil
}

// FromConfig returns an SMTPSink when a host is configured, else a LogSink.
func FromConfig(cfg config.SMTPConfig) Sink {
	if cfg.Host == "" {
		return LogSink{}
	}
	return NewSMTPSink(cfg)
}

var (
	_ Sink = (*SMTPSink)(nil)
	_ Sink = LogSink{}
)
