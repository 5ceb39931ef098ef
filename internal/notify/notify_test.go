package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/household-budget/internal/config"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/wneessen/go-mail"
)

func smtpConfig() config.SMTPConfig {
	return config.SMTPConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "budget@example.com",
		To:   []string{"family@example.com"},
	}
}

func TestSMTPSink_Send(t *testing.T) {
	sink := NewSMTPSink(smtpConfig())
	var sent *mail.Msg
	sink.send = func(_ context.Context, msg *mail.Msg) error {
		sent = msg
		return nil
	}

	if err := sink.Send(context.Background(), "March report", "<p>hi</p>"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if sent == nil {
		t.Fatal("no message handed to the transport")
	}
	if got, err := sent.GetRecipients(); err != nil || len(got) != 1 || got[0] != "family@example.com" {
		t.Errorf("recipients = %v, %v", got, err)
	}
	if got := sent.GetGenHeader(mail.HeaderSubject); len(got) != 1 || got[0] != "March report" {
		t.Errorf("Subject = %v", got)
	}
}

func TestSMTPSink_DeliveryFailure(t *testing.T) {
	sink := NewSMTPSink(smtpConfig())
	sink.send = func(context.Context, *mail.Msg) error {
		return errors.New("connection refused")
	}

	err := sink.Send(context.Background(), "s", "b")
	if !errors.Is(err, domain.ErrNotificationDeliveryFailed) {
		t.Errorf("Send() error = %v, want ErrNotificationDeliveryFailed", err)
	}
}

func TestSMTPSink_BadAddress(t *testing.T) {
	cfg := smtpConfig()
	cfg.From = "not an address"
	sink := NewSMTPSink(cfg)
	sink.send = func(context.Context, *mail.Msg) error {
		t.Fatal("transport must not be called with an invalid message")
		return nil
	}
	if err := sink.Send(context.Background(), "s", "b"); !errors.Is(err, domain.ErrNotificationDeliveryFailed) {
		t.Errorf("Send() error = %v, want ErrNotificationDeliveryFailed", err)
	}
}

func TestFromConfig(t *testing.T) {
	if _, ok := FromConfig(config.SMTPConfig{}).(LogSink); !ok {
		t.Error("empty host should give a LogSink")
	}
	if _, ok := FromConfig(smtpConfig()).(*SMTPSink); !ok {
		t.Error("configured host should give an SMTPSink")
	}
	if err := (LogSink{}).Send(context.Background(), "s", "b"); err != nil {
		t.Errorf("LogSink.Send() error = %v", err)
	}
}
