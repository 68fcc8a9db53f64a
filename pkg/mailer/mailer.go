// Package mailer delivers plain-text and HTML email through a pluggable provider.
package mailer

import (
	"context"
	"net/mail"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-timetable-api/pkg/config"
)

const (
	ProviderConsole  = "console"
	ProviderSendgrid = "sendgrid"
)

// Message is a single outbound email.
type Message struct {
	To       []mail.Address
	Subject  string
	TextBody string
	HTMLBody string
}

// HasRecipients reports whether at least one recipient is set.
func (m Message) HasRecipients() bool { return len(m.To) > 0 }

// HasContent reports whether the message carries a body.
func (m Message) HasContent() bool { return m.TextBody != "" || m.HTMLBody != "" }

// Sender delivers a message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ErrEmptyMessage is returned for messages without recipients or content.
var ErrEmptyMessage = errors.New("message has no recipients or content")

// New picks the sender configured in MAIL_PROVIDER.
func New(cfg config.MailConfig, logger *zap.Logger) (Sender, error) {
	from := mail.Address{Name: cfg.FromName, Address: cfg.FromAddress}
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderConsole:
		return NewConsoleSender(from, cfg.SubjectPrefix, logger), nil
	case ProviderSendgrid:
		if cfg.SendgridAPIKey == "" {
			return nil, errors.New("sendgrid provider requires SENDGRID_API_KEY")
		}
		return NewSendgridSender(cfg.SendgridAPIKey, from, cfg.SubjectPrefix), nil
	default:
		return nil, errors.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

// ConsoleSender writes messages to the log and keeps them for inspection.
type ConsoleSender struct {
	from       mail.Address
	subjPrefix string
	logger     *zap.Logger

	mu   sync.Mutex
	sent []Message
}

var _ Sender = (*ConsoleSender)(nil)

// NewConsoleSender constructs a console sender.
func NewConsoleSender(from mail.Address, subjPrefix string, logger *zap.Logger) *ConsoleSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleSender{from: from, subjPrefix: subjPrefix, logger: logger}
}

// Send logs the message.
func (s *ConsoleSender) Send(_ context.Context, msg Message) error {
	if !msg.HasRecipients() || !msg.HasContent() {
		return ErrEmptyMessage
	}
	to := make([]string, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, addr.String())
	}
	s.logger.Info("email",
		zap.String("from", s.from.String()),
		zap.Strings("to", to),
		zap.String("subject", s.subjPrefix+msg.Subject),
		zap.String("body", msg.TextBody),
	)

	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

// Sent returns a copy of delivered messages.
func (s *ConsoleSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}
