package identity_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eitsa/identity"
)

func TestTokenServiceIssueAndValidate(t *testing.T) {
	signingKey := []byte("test-signing-key")
	service := identity.NewTokenService(signingKey, 24*time.Hour, "eitsa-test")

	id := uuid.New()

	t.Run("claims round-trip before expiry", func(t *testing.T) {
		raw, err := service.Issue(id, "a@x.com", identity.RoleSalesRep)
		require.NoError(t, err)
		require.NotEmpty(t, raw)

		claims, err := service.Validate(raw)
		require.NoError(t, err)

		assert.Equal(t, id.String(), claims.UserID())
		assert.Equal(t, "a@x.com", claims.Email())
		assert.Equal(t, identity.RoleSalesRep, claims.Role())
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.Expires(), time.Minute)
	})

	t.Run("expired token fails with ErrTokenExpired", func(t *testing.T) {
		raw, err := service.Issue(id, "a@x.com", identity.RoleSalesRep)
		require.NoError(t, err)

		later := identity.NewTokenService(signingKey, 24*time.Hour, "eitsa-test").
			WithClock(func() time.Time { return time.Now().Add(25 * time.Hour) })

		_, err = later.Validate(raw)
		assert.ErrorIs(t, err, identity.ErrTokenExpired)
	})

	t.Run("token signed with another key fails signature check", func(t *testing.T) {
		other := identity.NewTokenService([]byte("different-key"), 24*time.Hour, "eitsa-test")

		raw, err := other.Issue(id, "a@x.com", identity.RoleSalesRep)
		require.NoError(t, err)

		_, err = service.Validate(raw)
		assert.ErrorIs(t, err, identity.ErrTokenInvalidSignature)
	})

	t.Run("garbage input is malformed", func(t *testing.T) {
		_, err := service.Validate("not.a.token")
		assert.ErrorIs(t, err, identity.ErrTokenMalformed)
	})

	t.Run("empty input is malformed", func(t *testing.T) {
		_, err := service.Validate("")
		assert.ErrorIs(t, err, identity.ErrTokenMalformed)
	})
}

func TestGenerateOpaqueToken(t *testing.T) {
	t.Run("produces 64 hex characters", func(t *testing.T) {
		token := identity.GenerateOpaqueToken()
		assert.Len(t, token, 64)
		assert.Regexp(t, "^[0-9a-f]+$", token)
	})

	t.Run("two tokens never collide", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 100; i++ {
			token := identity.GenerateOpaqueToken()
			assert.False(t, seen[token])
			seen[token] = true
		}
	})
}
