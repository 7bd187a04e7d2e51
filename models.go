package identity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Session is one authenticated device/browser instance. Sessions are owned
// by their User record and are never referenced independently.
type Session struct {
	Token      string    `json:"token"`
	Device     string    `json:"device"`
	IP         string    `json:"ip"`
	LastActive time.Time `json:"last_active"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the session is dead at the given time. The
// boundary is inclusive: a session whose expiry equals now is already
// expired, matching the strict expiresAt > now liveness filter everywhere
// else.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// SessionList is the ordered session sequence embedded in the user record.
// Insertion order is creation order.
type SessionList []Session

var _ driver.Valuer = SessionList{}

// Value serializes the list as JSON for the sessions column.
func (l SessionList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}

	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}

	return string(data), nil
}

// Scan restores the list from its JSON column value.
func (l *SessionList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported sessions column type %T", src)
	}

	if len(data) == 0 {
		*l = nil
		return nil
	}

	return json.Unmarshal(data, l)
}

// ServiceArea is the circular territory a sales rep covers, centered on a
// coordinate with a radius in meters.
type ServiceArea struct {
	Longitude float64 `json:"lng"`
	Latitude  float64 `json:"lat"`
	Radius    float64 `json:"radius"`
}

// DefaultServiceRadius is applied when a service area is set without an
// explicit radius.
const DefaultServiceRadius = 10000

// Validate bounds the coordinates; the radius, when set, must be positive.
func (a ServiceArea) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Latitude, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&a.Longitude, validation.Min(-180.0), validation.Max(180.0)),
		validation.Field(&a.Radius, validation.Min(0.0)),
	)
}

var _ driver.Valuer = (*ServiceArea)(nil)

// Value serializes the area as JSON for its column; an unset area is NULL.
func (a *ServiceArea) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}

	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan restores the area from its JSON column value.
func (a *ServiceArea) Scan(src any) error {
	if src == nil {
		*a = ServiceArea{}
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported service area column type %T", src)
	}

	return json.Unmarshal(data, a)
}

// User is the identity record. Sessions and the outstanding
// verification/reset tokens are embedded fields of this single document;
// there are no separate tables for them.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName    string    `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName     string    `bun:"last_name,notnull" json:"last_name,omitempty"`
	Email        string    `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash string    `bun:"password_hash" json:"-"`
	Role         UserRole  `bun:"user_role,notnull" json:"user_role,omitempty"`
	IsActive     bool      `bun:"is_active" json:"is_active"`

	ServiceArea *ServiceArea `bun:"service_area,type:jsonb" json:"service_area,omitempty"`

	EmailVerified            bool       `bun:"is_email_verified" json:"is_email_verified"`
	EmailVerificationToken   string     `bun:"email_verification_token,nullzero" json:"-"`
	EmailVerificationExpires *time.Time `bun:"email_verification_expires,nullzero" json:"-"`

	PasswordResetToken   string     `bun:"password_reset_token,nullzero" json:"-"`
	PasswordResetExpires *time.Time `bun:"password_reset_expires,nullzero" json:"-"`

	Sessions SessionList `bun:"sessions,type:jsonb" json:"-"`

	LastLogin *time.Time `bun:"last_login,nullzero" json:"last_login,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`

	// Version guards Save against lost updates: every successful write
	// increments it, and a write whose loaded version no longer matches the
	// row is rejected with ErrStaleRecord.
	Version int64 `bun:"version,notnull,default:0" json:"-"`
}

// FullName is the display name used in notifications.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsFederated reports whether the account was created from a federated
// identity claim. The empty password hash is the sentinel: such accounts
// can never pass a credential login.
func (u *User) IsFederated() bool {
	return u.PasswordHash == ""
}

// HasOutstandingVerification reports whether an email verification token
// is outstanding.
func (u *User) HasOutstandingVerification() bool {
	return u.EmailVerificationToken != ""
}

// HasOutstandingReset reports whether a password reset token is outstanding.
func (u *User) HasOutstandingReset() bool {
	return u.PasswordResetToken != ""
}

// NormalizeEmail lowercases and trims an email for the case-insensitive
// unique email invariant.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)

	if record.Role == "" {
		record.Role = RoleSalesRep
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	// new accounts start active; deactivation is an explicit admin action
	record.IsActive = true
}
