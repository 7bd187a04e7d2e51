package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserStore is the credential store port. Implementations must provide
// atomic single-record read-modify-write: Save writes the full record in
// one statement and must reject a record whose Version no longer matches
// the stored row with ErrStaleRecord, so a snapshot loaded before a
// concurrent write can never clobber it. The core holds no locks of its
// own and pushes consistency to this layer.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByVerificationToken(ctx context.Context, token string) (*User, error)
	FindByResetToken(ctx context.Context, token string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	Save(ctx context.Context, user *User) (*User, error)
}
