package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

const (
	// DefaultVerificationTTL bounds email verification tokens.
	DefaultVerificationTTL = 24 * time.Hour
	// DefaultResetTTL bounds password reset tokens.
	DefaultResetTTL = time.Hour
)

// Verifier runs the out-of-band token workflows: email verification and
// password reset. Both tokens are single-use; issuing a new one overwrites
// any outstanding one, and redemption clears the stored fields so a second
// redemption fails with ErrTokenNotFound.
type Verifier struct {
	store    UserStore
	notifier Notifier
	logger   Logger
	now      func() time.Time
}

// NewVerifier returns a Verifier with a noop notifier.
func NewVerifier(store UserStore) *Verifier {
	return &Verifier{
		store:    store,
		notifier: noopNotifier{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithNotifier configures the outbound email collaborator.
func (v *Verifier) WithNotifier(n Notifier) *Verifier {
	v.notifier = normalizeNotifier(n)
	return v
}

// WithLogger overrides the logger.
func (v *Verifier) WithLogger(l Logger) *Verifier {
	if l != nil {
		v.logger = l
	}
	return v
}

// WithClock overrides the time source, used by expiry tests.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	if now != nil {
		v.now = now
	}
	return v
}

// IssueEmailVerification generates a fresh verification token with a
// 24-hour expiry, replacing any outstanding one, and notifies the user.
func (v *Verifier) IssueEmailVerification(ctx context.Context, user *User) (string, error) {
	token := GenerateOpaqueToken()
	expires := v.now().Add(DefaultVerificationTTL)

	user.EmailVerificationToken = token
	user.EmailVerificationExpires = &expires

	user, err := v.store.Save(ctx, user)
	if err != nil {
		return "", wrapStoreError(err, "failed to persist verification token")
	}

	if err := v.notifier.NotifyVerification(ctx, user, token); err != nil {
		v.logger.Warn("verification notification failed", "error", err)
	}

	return token, nil
}

// RedeemEmailVerification marks the matching account's email as verified
// and clears the token fields. A cleared or unknown token fails with
// ErrTokenNotFound; an outstanding but stale one with ErrTokenExpired.
func (v *Verifier) RedeemEmailVerification(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrTokenNotFound
	}

	user, err := v.store.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrTokenNotFound
		}
		return nil, wrapStoreError(err, "failed to look up verification token")
	}

	if user.EmailVerificationExpires == nil || v.now().After(*user.EmailVerificationExpires) {
		return nil, ErrTokenExpired
	}

	user.EmailVerified = true
	user.EmailVerificationToken = ""
	user.EmailVerificationExpires = nil

	user, err = v.store.Save(ctx, user)
	if err != nil {
		return nil, wrapStoreError(err, "failed to persist email verification")
	}

	return user, nil
}

// IssuePasswordReset generates a reset token with a 1-hour expiry for the
// account behind the email, replacing any outstanding one. An unknown email
// reports success and sends nothing, so the endpoint cannot be used to
// enumerate accounts.
func (v *Verifier) IssuePasswordReset(ctx context.Context, email string) error {
	user, err := v.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return wrapStoreError(err, "failed to look up account for password reset")
	}

	token := GenerateOpaqueToken()
	expires := v.now().Add(DefaultResetTTL)

	user.PasswordResetToken = token
	user.PasswordResetExpires = &expires

	user, err = v.store.Save(ctx, user)
	if err != nil {
		return wrapStoreError(err, "failed to persist reset token")
	}

	if err := v.notifier.NotifyPasswordReset(ctx, user, token); err != nil {
		v.logger.Warn("password reset notification failed", "error", err)
	}

	return nil
}

// RedeemPasswordReset stores the new password, clears the reset token, and
// drops every device session so the account must log in again everywhere.
func (v *Verifier) RedeemPasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrTokenNotFound
	}

	user, err := v.store.FindByResetToken(ctx, token)
	if err != nil {
		if errors.IsNotFound(err) {
			return ErrTokenNotFound
		}
		return wrapStoreError(err, "failed to look up reset token")
	}

	if user.PasswordResetExpires == nil || v.now().After(*user.PasswordResetExpires) {
		return ErrTokenExpired
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid new password provided")
	}

	user.PasswordHash = hash
	user.PasswordResetToken = ""
	user.PasswordResetExpires = nil
	user.RevokeAllSessions()

	user, err = v.store.Save(ctx, user)
	if err != nil {
		return wrapStoreError(err, "failed to persist password reset")
	}

	if err := v.notifier.NotifyPasswordChanged(ctx, user); err != nil {
		v.logger.Warn("password changed notification failed", "error", err)
	}

	return nil
}
