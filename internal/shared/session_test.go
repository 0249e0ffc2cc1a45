package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "test_session", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	sess.SetPrincipal(Principal{UserID: 7, Email: "user@example.com", Name: "Asha"})
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "test_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookies[0])
	sess2, err := sm.Load(ctx, req2)
	require.NoError(t, err)

	p, ok := sess2.Principal()
	require.True(t, ok)
	assert.Equal(t, int64(7), p.UserID)
	assert.Equal(t, "user@example.com", p.Email)
	assert.Equal(t, "Asha", p.Name)
}

func TestSessionAnonymousHasNoPrincipal(t *testing.T) {
	sm := newTestSessionManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)

	_, ok := sess.Principal()
	assert.False(t, ok)
}

func TestSessionDestroy(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SetPrincipal(Principal{UserID: 7, Email: "user@example.com"})

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	cookie := rec.Result().Cookies()[0]

	sm.Destroy(sess)
	rec2 := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec2, sess))
	assert.Equal(t, -1, rec2.Result().Cookies()[0].MaxAge)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookie)
	sess2, err := sm.Load(ctx, req2)
	require.NoError(t, err)
	_, ok := sess2.Principal()
	assert.False(t, ok)
}

func TestSessionRotateInvalidatesOldID(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	// anonymous session committed before login, as the csrf endpoint does
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.Set("csrf_token", "token-before-login")
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	preLoginCookie := rec.Result().Cookies()[0]

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(preLoginCookie)
	sess2, err := sm.Load(ctx, req2)
	require.NoError(t, err)

	sess2.Rotate()
	sess2.SetPrincipal(Principal{UserID: 7, Email: "user@example.com", Name: "Asha"})
	rec2 := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec2, sess2))

	postLoginCookie := rec2.Result().Cookies()[0]
	assert.NotEqual(t, preLoginCookie.Value, postLoginCookie.Value)

	// carried values survive the rotation
	assert.Equal(t, "token-before-login", sess2.Get("csrf_token"))

	// the pre-login cookie no longer names an authenticated session
	req3 := httptest.NewRequest(http.MethodGet, "/", nil)
	req3.AddCookie(preLoginCookie)
	old, err := sm.Load(ctx, req3)
	require.NoError(t, err)
	_, ok := old.Principal()
	assert.False(t, ok)

	// the rotated cookie does
	req4 := httptest.NewRequest(http.MethodGet, "/", nil)
	req4.AddCookie(postLoginCookie)
	fresh, err := sm.Load(ctx, req4)
	require.NoError(t, err)
	p, ok := fresh.Principal()
	require.True(t, ok)
	assert.Equal(t, int64(7), p.UserID)
}

func TestCSRFTokenLifecycle(t *testing.T) {
	m := NewCSRFManager("test-secret")
	sess := &Session{ID: "abc", values: make(map[string]string)}

	token, err := m.EnsureToken(sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// stable within a session
	again, err := m.EnsureToken(sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, m.VerifyToken(sess, token))
	assert.ErrorIs(t, m.VerifyToken(sess, "forged"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, m.VerifyToken(sess, ""), ErrCSRFTokenMissing)
}

func TestCSRFTokenRequiresSession(t *testing.T) {
	m := NewCSRFManager("test-secret")

	_, err := m.EnsureToken(nil)
	assert.ErrorIs(t, err, ErrCSRFTokenMissing)
	assert.ErrorIs(t, m.VerifyToken(nil, "anything"), ErrCSRFTokenMissing)
}
