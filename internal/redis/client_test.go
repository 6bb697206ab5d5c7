package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestOAuthStateIsSingleUse(t *testing.T) {
	client, _ := newTestClient(t)

	require.NoError(t, client.SaveOAuthState("abc", &OAuthState{UserID: "u1", Type: "whatsapp"}, time.Minute))

	state, err := client.ConsumeOAuthState("abc")
	require.NoError(t, err)
	assert.Equal(t, "u1", state.UserID)

	_, err = client.ConsumeOAuthState("abc")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestOAuthStateExpires(t *testing.T) {
	client, mr := newTestClient(t)

	require.NoError(t, client.SaveOAuthState("abc", &OAuthState{UserID: "u1"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := client.ConsumeOAuthState("abc")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestCacheRoundTrip(t *testing.T) {
	client, _ := newTestClient(t)

	var out map[string]int
	assert.ErrorIs(t, client.GetCached("overview", &out), ErrCacheMiss)

	require.NoError(t, client.SetCached("overview", map[string]int{"totalUsers": 3}, time.Minute))
	require.NoError(t, client.GetCached("overview", &out))
	assert.Equal(t, 3, out["totalUsers"])

	require.NoError(t, client.DeleteCached("overview"))
	assert.ErrorIs(t, client.GetCached("overview", &out), ErrCacheMiss)
	assert.NoError(t, client.Ping())
}
