package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Hour, false, []byte("0123456789abcdef0123456789abcdef")), mr
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == Name {
			return c
		}
	}
	t.Fatalf("no %s cookie set", Name)
	return nil
}

func TestSaveAndReload(t *testing.T) {
	store, mr := newStore(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := store.Get(req, Name)
	require.NoError(t, err)
	assert.True(t, sess.IsNew)

	sess.Values["user_id"] = int64(42)
	rec := httptest.NewRecorder()
	require.NoError(t, sess.Save(req, rec))

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, mr.Exists(keyPrefix+sess.ID))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL(keyPrefix+sess.ID).Seconds(), 1)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookie)
	loaded, err := store.Get(req2, Name)
	require.NoError(t, err)
	assert.False(t, loaded.IsNew)
	assert.Equal(t, int64(42), loaded.Values["user_id"])
}

func TestForgedCookieStartsFreshSession(t *testing.T) {
	store, _ := newStore(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: Name, Value: "forged"})
	sess, err := store.Get(req, Name)
	require.NoError(t, err)
	assert.True(t, sess.IsNew)
	assert.Empty(t, sess.Values)
}

func TestExpiredSessionStartsFresh(t *testing.T) {
	store, mr := newStore(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, _ := store.Get(req, Name)
	sess.Values["user_id"] = int64(7)
	rec := httptest.NewRecorder()
	require.NoError(t, sess.Save(req, rec))

	mr.FastForward(2 * time.Hour)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(sessionCookie(t, rec))
	loaded, err := store.Get(req2, Name)
	require.NoError(t, err)
	assert.True(t, loaded.IsNew)
	assert.Nil(t, loaded.Values["user_id"])
}

func TestNegativeMaxAgeDeletesSession(t *testing.T) {
	store, mr := newStore(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, _ := store.Get(req, Name)
	sess.Values["user_id"] = int64(7)
	require.NoError(t, sess.Save(req, httptest.NewRecorder()))
	id := sess.ID

	sess.Options.MaxAge = -1
	rec := httptest.NewRecorder()
	require.NoError(t, sess.Save(req, rec))

	assert.False(t, mr.Exists(keyPrefix+id))
	assert.Less(t, sessionCookie(t, rec).MaxAge, 0)
}

func TestRenewDropsOldID(t *testing.T) {
	store, mr := newStore(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, _ := store.Get(req, Name)
	sess.Values["user_id"] = int64(7)
	require.NoError(t, sess.Save(req, httptest.NewRecorder()))
	oldID := sess.ID

	require.NoError(t, store.Renew(req, sess))
	assert.Empty(t, sess.ID)
	assert.False(t, mr.Exists(keyPrefix+oldID))

	require.NoError(t, sess.Save(req, httptest.NewRecorder()))
	assert.NotEqual(t, oldID, sess.ID)
	assert.True(t, mr.Exists(keyPrefix+sess.ID))
	assert.Equal(t, int64(7), sess.Values["user_id"])
}
