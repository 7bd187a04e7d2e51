package identity_test

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/eitsa/identity"
)

// memoryStore is an in-memory UserStore with the atomic whole-record
// semantics the port requires.
type memoryStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*identity.User
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: map[uuid.UUID]*identity.User{}}
}

func notFound() error {
	return errors.New("record not found", errors.CategoryNotFound).
		WithCode(errors.CodeNotFound)
}

func (m *memoryStore) FindByEmail(_ context.Context, email string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == identity.NormalizeEmail(email) {
			return cloneUser(u), nil
		}
	}
	return nil, notFound()
}

func (m *memoryStore) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, notFound()
}

func (m *memoryStore) FindByVerificationToken(_ context.Context, token string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if token != "" && u.EmailVerificationToken == token {
			return cloneUser(u), nil
		}
	}
	return nil, notFound()
}

func (m *memoryStore) FindByResetToken(_ context.Context, token string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if token != "" && u.PasswordResetToken == token {
			return cloneUser(u), nil
		}
	}
	return nil, notFound()
}

func (m *memoryStore) Create(_ context.Context, user *identity.User) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = identity.RoleSalesRep
	}
	user.Email = identity.NormalizeEmail(user.Email)
	user.IsActive = true

	m.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (m *memoryStore) Save(_ context.Context, user *identity.User) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.users[user.ID]
	if !ok {
		return nil, notFound()
	}
	if current.Version != user.Version {
		return nil, identity.ErrStaleRecord
	}

	user.Version++
	m.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func cloneUser(u *identity.User) *identity.User {
	cp := *u
	cp.Sessions = append(identity.SessionList(nil), u.Sessions...)
	return &cp
}

// recordingNotifier captures every notification for assertions.
type recordingNotifier struct {
	mu            sync.Mutex
	verifications []string
	resets        []string
	changed       []string
	newLogins     []string
}

func (r *recordingNotifier) NotifyVerification(_ context.Context, user *identity.User, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifications = append(r.verifications, token)
	return nil
}

func (r *recordingNotifier) NotifyPasswordReset(_ context.Context, user *identity.User, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets = append(r.resets, token)
	return nil
}

func (r *recordingNotifier) NotifyPasswordChanged(_ context.Context, user *identity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, user.Email)
	return nil
}

func (r *recordingNotifier) NotifyNewLogin(_ context.Context, user *identity.User, device, ip string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.newLogins = append(r.newLogins, device+"|"+ip)
	return nil
}
