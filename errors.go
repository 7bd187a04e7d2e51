package identity

import (
	"github.com/goliatone/go-errors"
)

// Text codes surfaced to the routing layer alongside the error category.
const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeUnauthenticated    = "UNAUTHENTICATED"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenBadSignature  = "TOKEN_BAD_SIGNATURE"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenNotFound      = "TOKEN_NOT_FOUND"
	TextCodeForbidden          = "FORBIDDEN"
	TextCodeStaleRecord        = "STALE_RECORD"
)

// ErrInvalidCredentials is returned for every credential login failure:
// unknown email, inactive account, federated-only account, or password
// mismatch. The cases are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthenticated is returned when no identity could be resolved from
// the request: missing bearer token, or a token whose subject no longer
// resolves to an active account.
var ErrUnauthenticated = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired covers bearer tokens past their TTL and opaque
// verification/reset tokens past their expiry. The message is specific so
// users are guided toward requesting a new link.
var ErrTokenExpired = errors.New("token has expired, request a new one", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenInvalidSignature is returned for a bearer token whose signature
// does not verify against the configured signing key.
var ErrTokenInvalidSignature = errors.New("token signature is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenBadSignature).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for a bearer token that is structurally
// invalid and could not be parsed.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenNotFound is returned when an opaque verification or reset token
// matches no account, including tokens already redeemed and cleared.
var ErrTokenNotFound = errors.New("token is invalid or has already been used", errors.CategoryNotFound).
	WithTextCode(TextCodeTokenNotFound).
	WithCode(errors.CodeNotFound)

// ErrForbidden is returned when an authenticated identity lacks the role
// required for an operation. Distinct from ErrUnauthenticated so callers
// can tell "not logged in" from "logged in but not permitted".
var ErrForbidden = errors.New("insufficient permissions", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrStaleRecord is returned by UserStore.Save when the record changed
// between load and write. The write is discarded; callers re-read the
// current record and reapply their change instead of overwriting it.
var ErrStaleRecord = errors.New("record was modified concurrently, reload and retry", errors.CategoryConflict).
	WithTextCode(TextCodeStaleRecord).
	WithCode(errors.CodeConflict)

// wrapStoreError keeps storage failures outside the auth taxonomy so the
// caller's own retry/surfacing policy can treat them as infrastructural.
func wrapStoreError(err error, msg string) error {
	return errors.Wrap(err, errors.CategoryInternal, msg)
}
