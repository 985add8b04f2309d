// Package notify delivers account emails.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/timecaddy/internal/logging"
	"github.com/resend/resend-go/v2"
)

// Notifier sends one plain-text message.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

var ErrNotConfigured = errors.New("email delivery not configured (missing RESEND_API_KEY)")

// ResendNotifier delivers through the Resend API.
type ResendNotifier struct {
	client *resend.Client
	from   string
	logger logging.Logger
}

func NewResendNotifier(client *resend.Client, from string, l logging.Logger) *ResendNotifier {
	return &ResendNotifier{client: client, from: from, logger: l.With("module", "notify")}
}

func (n *ResendNotifier) Send(ctx context.Context, to, subject, body string) error {
	if n.client == nil {
		return ErrNotConfigured
	}

	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	sent, err := n.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	n.logger.Info(ctx, "email sent", "to", to, "id", sent.Id)
	return nil
}

// LogNotifier writes messages to the log instead of sending them. It is
// used in development.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(l logging.Logger) *LogNotifier {
	return &LogNotifier{logger: l.With("module", "notify")}
}

func (n *LogNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.logger.Info(ctx, "email sent (dev mode)", "to", to, "subject", subject)
	n.logger.Debug(ctx, "email body (dev mode)", "to", to, "body", body)
	return nil
}
