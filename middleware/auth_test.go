package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eitsa/identity"
	"github.com/eitsa/identity/middleware"
)

// singleUserStore holds one account; enough surface for the gates.
type singleUserStore struct {
	user *identity.User
}

func (s *singleUserStore) FindByEmail(_ context.Context, email string) (*identity.User, error) {
	if s.user != nil && s.user.Email == identity.NormalizeEmail(email) {
		return s.user, nil
	}
	return nil, notFound()
}

func (s *singleUserStore) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, notFound()
}

func (s *singleUserStore) FindByVerificationToken(context.Context, string) (*identity.User, error) {
	return nil, notFound()
}

func (s *singleUserStore) FindByResetToken(context.Context, string) (*identity.User, error) {
	return nil, notFound()
}

func (s *singleUserStore) Create(_ context.Context, user *identity.User) (*identity.User, error) {
	s.user = user
	return user, nil
}

func (s *singleUserStore) Save(_ context.Context, user *identity.User) (*identity.User, error) {
	s.user = user
	return user, nil
}

func notFound() error {
	return errors.New("record not found", errors.CategoryNotFound).
		WithCode(errors.CodeNotFound)
}

type fixture struct {
	app    *fiber.App
	auth   *identity.Authenticator
	tokens identity.TokenService
	store  *singleUserStore
	user   *identity.User
}

func newFixture(t *testing.T, role identity.UserRole) *fixture {
	t.Helper()

	store := &singleUserStore{}
	tokens := identity.NewTokenService([]byte("test-signing-key"), 24*time.Hour, "eitsa-test")
	auth := identity.NewAuthenticator(store, tokens)

	hash, err := identity.HashPassword("secret1")
	require.NoError(t, err)

	user := &identity.User{
		ID:           uuid.New(),
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	store.user = user

	return &fixture{
		app:    fiber.New(),
		auth:   auth,
		tokens: tokens,
		store:  store,
		user:   user,
	}
}

func (f *fixture) bearer(t *testing.T) string {
	t.Helper()

	token, err := f.tokens.Issue(f.user.ID, f.user.Email, f.user.Role)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRequireAuth(t *testing.T) {
	t.Run("stores the resolved user in locals", func(t *testing.T) {
		f := newFixture(t, identity.RoleSalesRep)

		f.app.Get("/me", middleware.RequireAuth(middleware.Config{Auth: f.auth}), func(c *fiber.Ctx) error {
			user := middleware.UserFromCtx(c)
			require.NotNil(t, user)
			return c.JSON(fiber.Map{"email": user.Email, "role": user.Role})
		})

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(fiber.HeaderAuthorization, f.bearer(t))

		res, err := f.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		assert.Equal(t, "ada@example.com", body["email"])
		assert.Equal(t, "sales_rep", body["role"])
	})

	t.Run("missing header is 401", func(t *testing.T) {
		f := newFixture(t, identity.RoleSalesRep)
		f.app.Get("/me", middleware.RequireAuth(middleware.Config{Auth: f.auth}), ok)

		res, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("malformed scheme is 401", func(t *testing.T) {
		f := newFixture(t, identity.RoleSalesRep)
		f.app.Get("/me", middleware.RequireAuth(middleware.Config{Auth: f.auth}), ok)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Token abc123")

		res, err := f.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("expired token is 401 with a token code", func(t *testing.T) {
		f := newFixture(t, identity.RoleSalesRep)

		stale := identity.NewTokenService([]byte("test-signing-key"), 24*time.Hour, "eitsa-test").
			WithClock(func() time.Time { return time.Now().Add(-25 * time.Hour) })
		token, err := stale.Issue(f.user.ID, f.user.Email, f.user.Role)
		require.NoError(t, err)

		f.app.Get("/me", middleware.RequireAuth(middleware.Config{Auth: f.auth}), ok)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

		res, err := f.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("deactivated account is 401", func(t *testing.T) {
		f := newFixture(t, identity.RoleSalesRep)
		bearer := f.bearer(t)
		f.user.IsActive = false

		f.app.Get("/me", middleware.RequireAuth(middleware.Config{Auth: f.auth}), ok)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(fiber.HeaderAuthorization, bearer)

		res, err := f.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("session header refreshes the device session", func(t *testing.T) {
		f := newFixture(t, identity.RoleSalesRep)

		token := f.user.CreateSession("laptop", "10.0.0.1")
		before := f.store.user.Sessions[0].LastActive

		f.app.Get("/me", middleware.RequireAuth(middleware.Config{Auth: f.auth}), ok)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(fiber.HeaderAuthorization, f.bearer(t))
		req.Header.Set(middleware.DefaultSessionHeader, token)

		res, err := f.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.False(t, f.store.user.Sessions[0].LastActive.Before(before))
	})
}

func TestRequireRole(t *testing.T) {
	protect := func(f *fixture, roles ...identity.UserRole) {
		f.app.Get("/admin",
			middleware.RequireAuth(middleware.Config{Auth: f.auth}),
			middleware.RequireRole(roles...),
			ok,
		)
	}

	t.Run("member of the allowed set passes", func(t *testing.T) {
		f := newFixture(t, identity.RoleAdmin)
		protect(f, identity.RoleAdmin, identity.RoleManager)

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set(fiber.HeaderAuthorization, f.bearer(t))

		res, err := f.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("insufficient role is 403, not 401", func(t *testing.T) {
		f := newFixture(t, identity.RoleSalesRep)
		protect(f, identity.RoleAdmin, identity.RoleManager)

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set(fiber.HeaderAuthorization, f.bearer(t))

		res, err := f.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, res.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		assert.Equal(t, "Access denied. Insufficient permissions.", body["message"])
	})

	t.Run("role is read from the store, not the token", func(t *testing.T) {
		f := newFixture(t, identity.RoleSalesRep)
		bearer := f.bearer(t) // claims say sales_rep
		f.user.Role = identity.RoleAdmin

		protect(f, identity.RoleAdmin)

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set(fiber.HeaderAuthorization, bearer)

		res, err := f.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("without RequireAuth the gate is 401", func(t *testing.T) {
		f := newFixture(t, identity.RoleAdmin)
		f.app.Get("/admin", middleware.RequireRole(identity.RoleAdmin), ok)

		res, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})
}

func ok(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusOK)
}
