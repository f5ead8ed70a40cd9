package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"n8napp/internal/session"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	backend := session.NewRedisBackend(client, "test", "abc", time.Hour)
	st := session.New(backend)

	cred := session.Credential{BaseURL: "https://host", APIKey: "k"}
	require.NoError(t, st.Save(ctx, cred))
	assert.True(t, mr.Exists("test:abc:"+session.Key))
	assert.Equal(t, time.Hour, mr.TTL("test:abc:"+session.Key))

	got, ok, err := session.New(backend).Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cred, got)

	require.NoError(t, st.Clear(ctx))
	assert.False(t, mr.Exists("test:abc:"+session.Key))
}

func TestRedisSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	_, client := newRedis(t)
	a := session.New(session.NewRedisBackend(client, "", "a", 0))
	b := session.New(session.NewRedisBackend(client, "", "b", 0))

	require.NoError(t, a.Save(ctx, session.Credential{BaseURL: "https://a", APIKey: "k"}))
	_, ok, err := b.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSessionExpires(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	backend := session.NewRedisBackend(client, "", "s", time.Minute)
	st := session.New(backend)
	require.NoError(t, st.Save(ctx, session.Credential{BaseURL: "https://a", APIKey: "k"}))

	mr.FastForward(30 * time.Second)
	require.NoError(t, st.Save(ctx, session.Credential{BaseURL: "https://a", APIKey: "k2"}))
	assert.Equal(t, time.Minute, mr.TTL(session.DefaultRedisPrefix+":s:"+session.Key))

	mr.FastForward(2 * time.Minute)
	_, ok, err := st.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, session.Unconfigured, st.State())
}
