package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// FederatedClaim is a verified identity claim produced by an external OAuth
// exchange. Token exchange with the provider is not reimplemented here; the
// core only consumes the result.
type FederatedClaim struct {
	Email     string
	FirstName string
	LastName  string
}

// LoginResult is what a successful login hands back to the routing layer.
type LoginResult struct {
	User         *User
	BearerToken  string
	SessionToken string
}

// Authenticator resolves identities from credentials, federated claims, or
// bearer tokens. It is stateless across requests; all identity state lives
// in the store.
type Authenticator struct {
	store    UserStore
	tokens   TokenService
	notifier Notifier
	logger   Logger
	now      func() time.Time
}

// NewAuthenticator returns a new Authenticator. Configuration is explicit;
// there are no package-level defaults to mutate.
func NewAuthenticator(store UserStore, tokens TokenService) *Authenticator {
	return &Authenticator{
		store:    store,
		tokens:   tokens,
		notifier: noopNotifier{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithNotifier configures the outbound email collaborator.
func (a *Authenticator) WithNotifier(n Notifier) *Authenticator {
	a.notifier = normalizeNotifier(n)
	return a
}

// WithLogger overrides the logger.
func (a *Authenticator) WithLogger(l Logger) *Authenticator {
	if l != nil {
		a.logger = l
	}
	return a
}

// WithClock overrides the time source, used by expiry tests.
func (a *Authenticator) WithClock(now func() time.Time) *Authenticator {
	if now != nil {
		a.now = now
	}
	return a
}

// Login verifies an email/password pair and, on success, records the login,
// creates a device session, and issues a bearer token. Unknown email,
// inactive account, federated-only account, and password mismatch all
// produce the same ErrInvalidCredentials so callers cannot enumerate
// accounts.
func (a *Authenticator) Login(ctx context.Context, email, password, device, ip string) (*LoginResult, error) {
	user, err := a.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, wrapStoreError(err, "failed to retrieve user during login")
	}

	if !user.IsActive || user.IsFederated() {
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return a.establishSession(ctx, user, device, ip)
}

// LoginFederated resolves a verified external claim to an account,
// creating one on first sight. Accounts created this way carry no password
// hash, so credential Login keeps failing for them and access stays
// federated-only.
func (a *Authenticator) LoginFederated(ctx context.Context, claim FederatedClaim, device, ip string) (*LoginResult, error) {
	email := NormalizeEmail(claim.Email)

	user, err := a.store.FindByEmail(ctx, email)
	if err != nil {
		if !errors.IsNotFound(err) {
			return nil, wrapStoreError(err, "failed to retrieve user during federated login")
		}

		record := &User{
			FirstName:     claim.FirstName,
			LastName:      claim.LastName,
			Email:         email,
			Role:          RoleSalesRep,
			EmailVerified: true,
		}

		user, err = a.store.Create(ctx, record)
		if err != nil {
			return nil, wrapStoreError(err, "failed to create federated account")
		}
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return a.establishSession(ctx, user, device, ip)
}

// Authenticate resolves the identity behind a bearer token. The signature
// check alone is not trusted for authorization: the active flag and role
// are re-read from the store because both can change mid-token-lifetime.
func (a *Authenticator) Authenticate(ctx context.Context, bearer string) (*User, error) {
	if bearer == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := a.tokens.Validate(bearer)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrUnauthenticated
	}

	user, err := a.store.FindByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrUnauthenticated
		}
		return nil, wrapStoreError(err, "failed to retrieve user during authentication")
	}

	if !user.IsActive {
		return nil, ErrUnauthenticated
	}

	return user, nil
}

// saveAttempts bounds the re-read-and-retry loop on stale writes.
const saveAttempts = 3

// TouchSession refreshes the device session's last-active timestamp during
// authenticated activity. Expired or unknown tokens report false without
// mutation. The session is touched on a record re-read from the store, so
// a snapshot taken before a reset or revocation cannot write those
// sessions back.
func (a *Authenticator) TouchSession(ctx context.Context, user *User, sessionToken string) (bool, error) {
	for attempt := 0; attempt < saveAttempts; attempt++ {
		fresh, err := a.store.FindByID(ctx, user.ID)
		if err != nil {
			return false, wrapStoreError(err, "failed to reload user for session activity")
		}

		if !fresh.touchSessionAt(sessionToken, a.now()) {
			return false, nil
		}

		saved, err := a.store.Save(ctx, fresh)
		if err != nil {
			if errors.Is(err, ErrStaleRecord) {
				continue
			}
			return false, wrapStoreError(err, "failed to persist session activity")
		}

		*user = *saved
		return true, nil
	}

	return false, ErrStaleRecord
}

// Logout revokes the device session named by its opaque token. Revoking an
// absent session is not an error. Like TouchSession, the revocation is
// applied to a re-read record, never a caller-held snapshot.
func (a *Authenticator) Logout(ctx context.Context, user *User, sessionToken string) error {
	for attempt := 0; attempt < saveAttempts; attempt++ {
		fresh, err := a.store.FindByID(ctx, user.ID)
		if err != nil {
			return wrapStoreError(err, "failed to reload user for logout")
		}

		fresh.RevokeSession(sessionToken)

		saved, err := a.store.Save(ctx, fresh)
		if err != nil {
			if errors.Is(err, ErrStaleRecord) {
				continue
			}
			return wrapStoreError(err, "failed to persist logout")
		}

		*user = *saved
		return nil
	}

	return ErrStaleRecord
}

func (a *Authenticator) establishSession(ctx context.Context, user *User, device, ip string) (*LoginResult, error) {
	now := a.now()

	knownDevice := false
	for _, s := range user.ActiveSessions() {
		if s.Device == device && s.IP == ip {
			knownDevice = true
			break
		}
	}

	sessionToken := user.createSessionAt(device, ip, now)
	user.LastLogin = &now

	user, err := a.store.Save(ctx, user)
	if err != nil {
		return nil, wrapStoreError(err, "failed to persist login")
	}

	bearer, err := a.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	if !knownDevice {
		if err := a.notifier.NotifyNewLogin(ctx, user, device, ip); err != nil {
			a.logger.Warn("new login notification failed", "error", err)
		}
	}

	return &LoginResult{
		User:         user,
		BearerToken:  bearer,
		SessionToken: sessionToken,
	}, nil
}
