package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/pagewatch/pagewatch/internal/watch"
)

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier implements watch.Notifier over SMTP.
type SMTPNotifier struct {
	cfg    SMTPConfig
	client *mail.Client
}

// NewSMTP creates an SMTP notifier. The connection is dialed per send;
// a delivery failure never blocks the engine.
func NewSMTP(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	opts := []mail.Option{
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPNotifier{cfg: cfg, client: client}, nil
}

// Send delivers msg to its recipient.
func (n *SMTPNotifier) Send(ctx context.Context, msg watch.Notification) error {
	m := mail.NewMsg()
	if err := m.From(n.cfg.From); err != nil {
		return &watch.NotifierError{Recipient: msg.Recipient, Err: err}
	}
	if err := m.To(msg.Recipient); err != nil {
		return &watch.NotifierError{Recipient: msg.Recipient, Err: err}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	if err := n.client.DialAndSendWithContext(ctx, m); err != nil {
		return &watch.NotifierError{Recipient: msg.Recipient, Err: err}
	}
	return nil
}
