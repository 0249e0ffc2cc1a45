package auth

import (
	"context"
	"log/slog"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tilekart/tilekart/internal/shared"
)

type stubLimiter struct {
	allowed bool
	err     error
	calls   int
}

func (s *stubLimiter) Allow(_ context.Context, _, _ string) (bool, error) {
	s.calls++
	return s.allowed, s.err
}

type fakeUserStore struct {
	nextID int64
	users  map[int64]*User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*User)}
}

func (f *fakeUserStore) Create(_ context.Context, u User) (int64, error) {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return 0, ErrDuplicateEmail
		}
	}
	f.nextID++
	u.ID = f.nextID
	f.users[u.ID] = &u
	return u.ID, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id int64, hash string) error {
	u, ok := f.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

type captureRecorder struct {
	entries []shared.AuditEntry
}

func (c *captureRecorder) Record(_ context.Context, entry shared.AuditEntry) {
	c.entries = append(c.entries, entry)
}

func newTestService(store *fakeUserStore, limiter LoginLimiter, audit auditRecorder) *Service {
	if audit == nil {
		audit = &captureRecorder{}
	}
	return &Service{
		repo:     store,
		limiter:  limiter,
		audit:    audit,
		validate: validator.New(),
		logger:   slog.Default(),
	}
}

func seedUser(t *testing.T, store *fakeUserStore, email, password string) int64 {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	id, err := store.Create(context.Background(), User{Email: email, Name: "Asha", PasswordHash: string(hash)})
	require.NoError(t, err)
	return id
}

func TestLogin(t *testing.T) {
	store := newFakeUserStore()
	audit := &captureRecorder{}
	svc := newTestService(store, nil, audit)
	id := seedUser(t, store, "user@example.com", "secret123")

	p, err := svc.Login(context.Background(), LoginRequest{Email: "user@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, id, p.UserID)
	assert.Equal(t, "user@example.com", p.Email)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "auth.login", audit.entries[0].Action)
	assert.Equal(t, id, audit.entries[0].UserID)
}

func TestLoginWrongPasswordAuditsResolvedUser(t *testing.T) {
	store := newFakeUserStore()
	audit := &captureRecorder{}
	svc := newTestService(store, nil, audit)
	id := seedUser(t, store, "user@example.com", "secret123")

	_, err := svc.Login(context.Background(), LoginRequest{Email: "user@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	// the failure must carry the account id the email resolved to, so the
	// per-user failed-login count can see it
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "auth.login_failed", audit.entries[0].Action)
	assert.Equal(t, id, audit.entries[0].UserID)
	assert.Equal(t, "user@example.com", audit.entries[0].NewValues["email"])
}

func TestLoginUnknownEmailAuditsAnonymously(t *testing.T) {
	store := newFakeUserStore()
	audit := &captureRecorder{}
	svc := newTestService(store, nil, audit)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "auth.login_failed", audit.entries[0].Action)
	assert.Equal(t, int64(0), audit.entries[0].UserID)
}

func TestLoginRejectsInvalidRequest(t *testing.T) {
	svc := newTestService(newFakeUserStore(), nil, nil)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "not-an-email", Password: "secret123"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "user@example.com"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestLoginThrottled(t *testing.T) {
	limiter := &stubLimiter{allowed: false}
	svc := newTestService(newFakeUserStore(), limiter, nil)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "user@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Equal(t, 1, limiter.calls)
}

func TestChangePassword(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestService(store, nil, nil)
	id := seedUser(t, store, "user@example.com", "secret123")

	err := svc.ChangePassword(context.Background(), id, ChangePasswordRequest{
		CurrentPassword: "wrong-pass",
		NewPassword:     "freshsecret",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	err = svc.ChangePassword(context.Background(), id, ChangePasswordRequest{
		CurrentPassword: "secret123",
		NewPassword:     "freshsecret",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "user@example.com", Password: "freshsecret"})
	assert.NoError(t, err)
}

func TestRegisterRejectsInvalidRequest(t *testing.T) {
	svc := newTestService(newFakeUserStore(), nil, nil)

	_, err := svc.Register(context.Background(), RegisterRequest{Email: "bad", Name: "A", Password: "secret123"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Register(context.Background(), RegisterRequest{Email: "user@example.com", Name: "A", Password: "short"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestService(store, nil, nil)
	seedUser(t, store, "user@example.com", "secret123")

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "user@example.com",
		Name:     "Asha",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}