package notify

import (
	"context"
	"errors"
	"servicecheck/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"
)

var (
	ErrCreateMailClient = errors.New("failed to create mail client")
	ErrBuildMessage     = errors.New("failed to build mail message")
	ErrSendMessage      = errors.New("failed to send mail message")
)

// Message is a plain-text email to a single recipient.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers through an SMTP relay.
type SMTPMailer struct {
	settings *config.MailConfig
}

func NewSMTPMailer(settings *config.MailConfig) *SMTPMailer {
	return &SMTPMailer{settings: settings}
}

func (m *SMTPMailer) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(m.settings.Port),
		mail.WithTimeout(m.settings.Timeout),
	}

	switch m.settings.TLS {
	case "mandatory":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	case "none":
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	if m.settings.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.settings.Username),
			mail.WithPassword(m.settings.Password),
		)
	}

	c, err := mail.NewClient(m.settings.Host, opts...)
	if err != nil {
		return nil, errors.Join(ErrCreateMailClient, err)
	}
	return c, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	message := mail.NewMsg()
	if err := message.From(m.settings.From); err != nil {
		return errors.Join(ErrBuildMessage, err)
	}
	if err := message.To(msg.To); err != nil {
		return errors.Join(ErrBuildMessage, err)
	}
	message.Subject(msg.Subject)
	message.SetBodyString(mail.TypeTextPlain, msg.Body)

	c, err := m.client()
	if err != nil {
		return err
	}
	if err := c.DialAndSendWithContext(ctx, message); err != nil {
		return errors.Join(ErrSendMessage, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. Used when no
// SMTP host is configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	log.Warn().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("Mail transport not configured, logging notification")
	return nil
}

// NewMailer picks the SMTP transport when a host is configured.
func NewMailer(settings *config.MailConfig) Mailer {
	if settings.MailEnabled() {
		return NewSMTPMailer(settings)
	}
	return LogMailer{}
}
