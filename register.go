package identity

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
)

// RegisterUser is the payload for creating a credential-based account.
type RegisterUser struct {
	FirstName   string       `json:"first_name"`
	LastName    string       `json:"last_name"`
	Email       string       `json:"email"`
	Password    string       `json:"password"`
	Role        UserRole     `json:"role"`
	ServiceArea *ServiceArea `json:"service_area"`
}

// Validate enforces field presence and format before any hashing work.
func (r RegisterUser) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required),
		validation.Field(&r.LastName, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 0)),
		validation.Field(&r.Role, validation.In(RoleAdmin, RoleManager, RoleSalesRep)),
		validation.Field(&r.ServiceArea),
	)
}

// ProfileUpdate is the payload for editing one's own account. Zero fields
// are left unchanged.
type ProfileUpdate struct {
	FirstName   string       `json:"first_name"`
	LastName    string       `json:"last_name"`
	ServiceArea *ServiceArea `json:"service_area"`
}

// Validate checks the service area when one is provided.
func (p ProfileUpdate) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ServiceArea),
	)
}

// Registrar creates accounts. The password is hashed before the record is
// first persisted; the raw password is never stored or logged.
type Registrar struct {
	store    UserStore
	verifier *Verifier
	logger   Logger
}

// NewRegistrar returns a Registrar that kicks off email verification for
// every new account.
func NewRegistrar(store UserStore, verifier *Verifier) *Registrar {
	return &Registrar{
		store:    store,
		verifier: verifier,
		logger:   defLogger{},
	}
}

// WithLogger overrides the logger.
func (r *Registrar) WithLogger(l Logger) *Registrar {
	if l != nil {
		r.logger = l
	}
	return r
}

// Register validates the payload, creates the account, and issues the
// initial email verification token.
func (r *Registrar) Register(ctx context.Context, input RegisterUser) (*User, error) {
	if err := input.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid registration payload")
	}

	email := NormalizeEmail(input.Email)

	if _, err := r.store.FindByEmail(ctx, email); err == nil {
		return nil, errors.New("account already exists for this email", errors.CategoryConflict).
			WithCode(errors.CodeConflict)
	} else if !errors.IsNotFound(err) {
		return nil, wrapStoreError(err, "failed to check for existing account")
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	record := &User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		ServiceArea:  normalizeServiceArea(input.ServiceArea),
	}

	user, err := r.store.Create(ctx, record)
	if err != nil {
		return nil, wrapStoreError(err, "failed to create account")
	}

	if _, err := r.verifier.IssueEmailVerification(ctx, user); err != nil {
		// the account exists; verification can be re-requested later
		r.logger.Warn("initial verification issue failed", "error", err)
	}

	return user, nil
}

// UpdateProfile applies the edits to a record re-read from the store and
// persists them. Names are replaced only when non-empty; a service area
// without an explicit radius gets the default.
func (r *Registrar) UpdateProfile(ctx context.Context, user *User, input ProfileUpdate) (*User, error) {
	if err := input.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid profile payload")
	}

	for attempt := 0; attempt < saveAttempts; attempt++ {
		fresh, err := r.store.FindByID(ctx, user.ID)
		if err != nil {
			return nil, wrapStoreError(err, "failed to reload user for profile update")
		}

		if input.FirstName != "" {
			fresh.FirstName = input.FirstName
		}
		if input.LastName != "" {
			fresh.LastName = input.LastName
		}
		if input.ServiceArea != nil {
			fresh.ServiceArea = normalizeServiceArea(input.ServiceArea)
		}

		saved, err := r.store.Save(ctx, fresh)
		if err != nil {
			if errors.Is(err, ErrStaleRecord) {
				continue
			}
			return nil, wrapStoreError(err, "failed to persist profile update")
		}

		return saved, nil
	}

	return nil, ErrStaleRecord
}

func normalizeServiceArea(area *ServiceArea) *ServiceArea {
	if area == nil {
		return nil
	}

	normalized := *area
	if normalized.Radius == 0 {
		normalized.Radius = DefaultServiceRadius
	}
	return &normalized
}
