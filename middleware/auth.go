// Package middleware provides the two request gates the routing layer
// mounts in front of protected handlers: bearer-token authentication and
// role membership checks.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"

	"github.com/eitsa/identity"
)

// DefaultContextKey is where the resolved user is stored in request locals.
const DefaultContextKey = "user"

// DefaultSessionHeader names the header carrying the opaque device session
// token; when present, authenticated activity refreshes the session.
const DefaultSessionHeader = "X-Session-Token"

// Config configures the authentication gate.
type Config struct {
	Auth          *identity.Authenticator
	ContextKey    string
	SessionHeader string
	Logger        identity.Logger
}

func (c *Config) setDefaults() {
	if c.ContextKey == "" {
		c.ContextKey = DefaultContextKey
	}
	if c.SessionHeader == "" {
		c.SessionHeader = DefaultSessionHeader
	}
}

// RequireAuth resolves the identity behind the Authorization header and
// stores it in locals. Requests without a resolvable, active identity stop
// here with 401; authorization failures are left to RequireRole so the two
// remain distinguishable.
func RequireAuth(cfg Config) fiber.Handler {
	cfg.setDefaults()

	return func(c *fiber.Ctx) error {
		raw := bearerToken(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			return unauthorized(c, identity.ErrUnauthenticated)
		}

		user, err := cfg.Auth.Authenticate(c.UserContext(), raw)
		if err != nil {
			var richErr *errors.Error
			if errors.As(err, &richErr) && richErr.Category == errors.CategoryAuth {
				return unauthorized(c, richErr)
			}
			if cfg.Logger != nil {
				cfg.Logger.Error("authentication gate store failure", "error", err)
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "authentication temporarily unavailable",
			})
		}

		if session := c.Get(cfg.SessionHeader); session != "" {
			if _, err := cfg.Auth.TouchSession(c.UserContext(), user, session); err != nil && cfg.Logger != nil {
				cfg.Logger.Warn("session touch failed", "error", err)
			}
		}

		c.Locals(cfg.ContextKey, user)
		return c.Next()
	}
}

// RequireRole gates the request on exact membership in the allowed role
// set. It must run after RequireAuth; a missing identity maps to 401, an
// insufficient role to 403.
func RequireRole(roles ...identity.UserRole) fiber.Handler {
	return RequireRoleWithKey(DefaultContextKey, roles...)
}

// RequireRoleWithKey is RequireRole for a custom locals key.
func RequireRoleWithKey(contextKey string, roles ...identity.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := c.Locals(contextKey).(*identity.User)

		var resolved identity.UserRole
		if user != nil {
			resolved = user.Role
		}

		if err := identity.Authorize(resolved, roles...); err != nil {
			if errors.Is(err, identity.ErrForbidden) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"message": "Access denied. Insufficient permissions.",
				})
			}
			return unauthorized(c, identity.ErrUnauthenticated)
		}

		return c.Next()
	}
}

// UserFromCtx returns the identity resolved by RequireAuth, or nil.
func UserFromCtx(c *fiber.Ctx) *identity.User {
	user, _ := c.Locals(DefaultContextKey).(*identity.User)
	return user
}

func bearerToken(header string) string {
	const scheme = "Bearer "
	if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
		return strings.TrimSpace(header[len(scheme):])
	}
	return ""
}

func unauthorized(c *fiber.Ctx, err *errors.Error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": err.Message,
		"code":    err.TextCode,
	})
}
