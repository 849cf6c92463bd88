package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/wneessen/go-mail"

	"github.com/kazz187/taskdesk/internal/config"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers one message and returns the message id assigned to it.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

type SMTPMailer struct {
	client *mail.Client
	from   string
}

func NewSMTPMailer(env *config.MailEnv) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(env.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if env.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(env.SMTPUsername),
			mail.WithPassword(env.SMTPPassword),
		)
	}
	client, err := mail.NewClient(env.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: env.From}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) (string, error) {
	mm := mail.NewMsg()
	if err := mm.From(m.from); err != nil {
		return "", fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := mm.To(msg.To); err != nil {
		return "", fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextPlain, msg.Body)
	mm.SetMessageID()
	if err := m.client.DialAndSendWithContext(ctx, mm); err != nil {
		return "", fmt.Errorf("send to %s: %w", msg.To, err)
	}
	return mm.GetMessageID(), nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) (string, error) {
	id := ulid.Make().String()
	slog.InfoContext(ctx, "mail (log driver)",
		"mail.id", id,
		"mail.to", msg.To,
		"mail.subject", msg.Subject,
		"mail.body", msg.Body,
	)
	return id, nil
}
