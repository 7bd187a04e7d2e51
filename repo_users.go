package identity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UsersRepository is the bun-backed credential store. One row per identity;
// sessions and outstanding tokens are columns of that row, so the
// single-statement writes below give the per-record atomicity the core
// assumes.
type UsersRepository struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ UserStore = (*UsersRepository)(nil)

// NewUsersRepository wires the user store over a bun DB handle.
func NewUsersRepository(db *bun.DB) *UsersRepository {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &UsersRepository{
		Repository: repo,
		db:         db,
	}
}

// FindByEmail looks an account up by its normalized email.
func (r *UsersRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "email", NormalizeEmail(email))
}

// FindByID looks an account up by id.
func (r *UsersRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.findOne(ctx, "id", id.String())
}

// FindByVerificationToken resolves an outstanding email verification token.
func (r *UsersRepository) FindByVerificationToken(ctx context.Context, token string) (*User, error) {
	return r.findOne(ctx, "email_verification_token", token)
}

// FindByResetToken resolves an outstanding password reset token.
func (r *UsersRepository) FindByResetToken(ctx context.Context, token string) (*User, error) {
	return r.findOne(ctx, "password_reset_token", token)
}

// Create persists a new account with defaults applied.
func (r *UsersRepository) Create(ctx context.Context, user *User) (*User, error) {
	prepareUserDefaults(user)
	return r.Repository.CreateTx(ctx, r.db, user)
}

// Save writes the full record back in a single statement guarded by the
// record's version. Every column is written, so cleared token fields and
// the session list land atomically; a row whose version moved since this
// record was loaded is left untouched and the write fails with
// ErrStaleRecord so the caller re-reads and reapplies.
func (r *UsersRepository) Save(ctx context.Context, user *User) (*User, error) {
	now := time.Now()
	user.UpdatedAt = &now

	loaded := user.Version
	user.Version = loaded + 1

	res, err := r.db.NewUpdate().
		Model(user).
		WherePK().
		Where("?TableAlias.version = ?", loaded).
		Exec(ctx)
	if err != nil {
		user.Version = loaded
		return nil, err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		user.Version = loaded

		exists, err := r.db.NewSelect().
			Model((*User)(nil)).
			Where("?TableAlias.id = ?", user.ID.String()).
			Exists(ctx)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": user.ID.String()})
		}

		return nil, ErrStaleRecord
	}

	return user, nil
}

// List returns every account, oldest first. Used by the admin surface.
func (r *UsersRepository) List(ctx context.Context) ([]*User, error) {
	var records []*User

	err := r.db.NewSelect().
		Model(&records).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *UsersRepository) findOne(ctx context.Context, column, value string) (*User, error) {
	record := &User{}

	err := r.db.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{column: value})
		}
		return nil, err
	}

	return record, nil
}
