// Package smtp implements the identity.Notifier port over SMTP. Delivery
// failures surface as errors for the caller to log; the identity core
// treats every notification as fire-and-forget.
package smtp

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/eitsa/identity"
)

// Config carries the SMTP connection settings and the frontend base URL
// used to build verification and reset links.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	FrontendURL string
}

// Notifier sends the platform's transactional email.
type Notifier struct {
	cfg Config
}

var _ identity.Notifier = (*Notifier)(nil)

// New returns an SMTP notifier.
func New(cfg Config) *Notifier {
	return &Notifier{cfg: cfg}
}

// NotifyVerification sends the email-confirmation link.
func (n *Notifier) NotifyVerification(ctx context.Context, user *identity.User, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", n.cfg.FrontendURL, token)
	body := fmt.Sprintf(
		"Hello %s,\n\nThank you for joining EITSA. Please verify your email address:\n\n%s\n\nThis link will expire in 24 hours. If you didn't create an account, please ignore this email.\n",
		user.FirstName, link,
	)
	return n.send(ctx, user.Email, "Verify Your Email", body)
}

// NotifyPasswordReset sends the reset link.
func (n *Notifier) NotifyPasswordReset(ctx context.Context, user *identity.User, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", n.cfg.FrontendURL, token)
	body := fmt.Sprintf(
		"Hello %s,\n\nYou requested to reset your EITSA account password:\n\n%s\n\nThis link will expire in 1 hour. If you didn't request this reset, please ignore this email.\n",
		user.FirstName, link,
	)
	return n.send(ctx, user.Email, "Password Reset Request", body)
}

// NotifyPasswordChanged confirms that the password was changed.
func (n *Notifier) NotifyPasswordChanged(ctx context.Context, user *identity.User) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour EITSA account password was just changed and you have been signed out everywhere. If this wasn't you, reset your password immediately.\n",
		user.FirstName,
	)
	return n.send(ctx, user.Email, "Your Password Was Changed", body)
}

// NotifyNewLogin warns about a login from an unrecognized device.
func (n *Notifier) NotifyNewLogin(ctx context.Context, user *identity.User, device, ip string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nA new login to your EITSA account was detected.\n\nDevice: %s\nAddress: %s\n\nIf this wasn't you, reset your password immediately.\n",
		user.FirstName, device, ip,
	)
	return n.send(ctx, user.Email, "New Login Detected", body)
}

func (n *Notifier) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject("[EITSA] " + subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(n.cfg.Host,
		mail.WithPort(n.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.Username),
		mail.WithPassword(n.cfg.Password),
	)
	if err != nil {
		return err
	}

	return client.DialAndSendWithContext(ctx, msg)
}
