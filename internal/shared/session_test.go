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

func newManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "desk_session", time.Hour, true), mr
}

func TestSessionLoginRoundTrip(t *testing.T) {
	sm, mr := newManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Empty(t, sess.User())

	sm.Renew(sess)
	sess.SetUser("u-1")
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, sess))

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sess.ID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	assert.True(t, mr.Exists("session:"+sess.ID))
	assert.Equal(t, time.Hour, mr.TTL("session:"+sess.ID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, sess.ID)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "u-1", loaded.User())
}

func TestSessionRenewDropsPreviousID(t *testing.T) {
	sm, mr := newManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("u-1")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	first := sess.ID

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "desk_session", Value: first})
	sess, err = sm.Load(ctx, req)
	require.NoError(t, err)
	sm.Renew(sess)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))

	assert.NotEqual(t, first, sess.ID)
	assert.False(t, mr.Exists("session:"+first))
	assert.True(t, mr.Exists("session:"+sess.ID))
}

func TestSessionUnknownIDIsNotAdopted(t *testing.T) {
	sm, _ := newManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, "forged")

	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "forged", sess.ID)
	assert.Empty(t, sess.User())
}

func TestSessionDestroyAndAnonymous(t *testing.T) {
	sm, mr := newManager(t)
	ctx := context.Background()

	anon, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, anon))
	assert.Empty(t, rr.Result().Cookies())
	assert.Empty(t, mr.Keys())

	anon.SetUser("u-2")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), anon))
	require.True(t, mr.Exists("session:"+anon.ID))

	sm.Destroy(anon)
	rr = httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, anon))
	assert.False(t, mr.Exists("session:"+anon.ID))
	require.Len(t, rr.Result().Cookies(), 1)
	assert.Equal(t, -1, rr.Result().Cookies()[0].MaxAge)

	var nilSession *Session
	assert.Empty(t, nilSession.User())
	assert.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), nil))
}

func TestSessionContext(t *testing.T) {
	assert.Nil(t, SessionFromContext(context.Background()))
	sess := &Session{ID: "s"}
	assert.Same(t, sess, SessionFromContext(ContextWithSession(context.Background(), sess)))
}
