package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	mailTimeout = 15 * time.Second
	// mailWorkers caps concurrent background deliveries.
	mailWorkers = 4
)

// Notifier delivers mail on behalf of the core in the background. Delivery
// failures are logged and never returned: a user-facing action must not fail
// or stall because mail did.
type Notifier struct {
	sender   MailSender
	logger   *zap.Logger
	siteName string
	inflight errgroup.Group
}

func NewNotifier(sender MailSender, logger *zap.Logger, siteName string) *Notifier {
	n := &Notifier{sender: sender, logger: logger, siteName: siteName}
	n.inflight.SetLimit(mailWorkers)
	return n
}

// Notify queues one message and returns without waiting for delivery. When every
// worker is busy the message is sent inline so nothing is dropped.
func (n *Notifier) Notify(ctx context.Context, to, subject, body string) {
	if n == nil || n.sender == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	send := func() error {
		ctx, cancel := context.WithTimeout(detached, mailTimeout)
		defer cancel()
		if err := n.sender.Send(ctx, to, subject, body); err != nil {
			n.logger.Warn("mail delivery failed", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		}
		return nil
	}
	if !n.inflight.TryGo(send) {
		n.logger.Debug("mail workers busy, sending inline", zap.String("to", to))
		_ = send()
	}
}

// Wait blocks until queued deliveries have finished.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	_ = n.inflight.Wait()
}

func (n *Notifier) invitation(ctx context.Context, to, registrationURL, code string) {
	subject := fmt.Sprintf("[%s] You're invited to join our family media library", n.siteName)
	body := fmt.Sprintf(
		"Hello,\n\n"+
			"You've been invited to join the %s family media library!\n\n"+
			"Click the link below to create your account:\n%s\n\n"+
			"Or use this invitation code: %s\n\n"+
			"This invitation is exclusively for you and should not be shared.\n\n"+
			"Best regards,\n%s",
		n.siteName, registrationURL, code, n.siteName,
	)
	n.Notify(ctx, to, subject, body)
}

func (n *Notifier) welcome(ctx context.Context, to, name string) {
	subject := fmt.Sprintf("[%s] Welcome to the family media library", n.siteName)
	body := fmt.Sprintf("Hello %s,\n\nYour account is ready. Sign in any time to browse the library.\n\n%s", name, n.siteName)
	n.Notify(ctx, to, subject, body)
}

// logMailSender stands in for SMTP when mail is disabled.
type logMailSender struct {
	logger *zap.Logger
}

func NewLogMailSender(logger *zap.Logger) MailSender {
	return &logMailSender{logger: logger}
}

func (s *logMailSender) Send(_ context.Context, to, subject, body string) error {
	s.logger.Info("mail (smtp disabled)", zap.String("to", to), zap.String("subject", subject), zap.Int("body_len", len(body)))
	return nil
}

// NormalizeEmail trims and lower-cases a bare address, rejecting display-name forms.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", ErrInvalidEmail
	}
	return email, nil
}
