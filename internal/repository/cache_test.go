package repository

import (
	"context"
	"testing"
	"time"

	"linkup/internal/model"
	"linkup/internal/util"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*util.RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return util.NewRedisClientFromClient(rdb), mr
}

func TestListCacheHitMissAndExpiry(t *testing.T) {
	client, mr := newTestRedis(t)
	cache := newListCache(client, 30*time.Second)
	ctx := context.Background()
	key := friendsKey("u1")

	var got []model.UserProfile
	assert.False(t, cache.get(ctx, key, &got))

	want := []model.UserProfile{
		{ID: "u2", DisplayName: "Bob", Email: "bob@example.com", LastSeen: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)},
	}
	cache.set(ctx, key, want)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 30*time.Second, mr.TTL(key))

	require.True(t, cache.get(ctx, key, &got))
	assert.Equal(t, want, got)

	mr.FastForward(31 * time.Second)
	assert.False(t, cache.get(ctx, key, &got))
}

func TestListCacheCorruptEntryIsMiss(t *testing.T) {
	client, mr := newTestRedis(t)
	cache := newListCache(client, time.Minute)
	key := incomingKey("u1")
	require.NoError(t, mr.Set(key, "{not json"))

	var got []model.IncomingRequest
	assert.False(t, cache.get(context.Background(), key, &got))
}

func TestListCacheRedisErrorsAreMisses(t *testing.T) {
	client, mr := newTestRedis(t)
	cache := newListCache(client, time.Minute)
	ctx := context.Background()

	mr.SetError("LOADING redis is loading the dataset")
	var got []model.UserProfile
	assert.False(t, cache.get(ctx, friendsKey("u1"), &got))
	assert.NotPanics(t, func() {
		cache.set(ctx, friendsKey("u1"), []model.UserProfile{})
		cache.invalidate(ctx, friendsKey("u1"))
	})

	mr.SetError("")
	assert.False(t, mr.Exists(friendsKey("u1")))
}

func TestListCacheDisabled(t *testing.T) {
	ctx := context.Background()
	for _, cache := range []*listCache{nil, newListCache(nil, 0)} {
		var got []model.UserProfile
		assert.False(t, cache.get(ctx, friendsKey("u1"), &got))
		assert.NotPanics(t, func() {
			cache.set(ctx, friendsKey("u1"), got)
			cache.requestAccepted(ctx, &model.FriendRequest{SenderID: "a", ReceiverID: "b"})
		})
	}
	assert.Equal(t, time.Minute, newListCache(nil, 0).ttl)
}

func TestListCacheInvalidationPerTransition(t *testing.T) {
	req := &model.FriendRequest{SenderID: "alice", ReceiverID: "bob"}
	keys := []string{
		incomingKey("alice"),
		incomingKey("bob"),
		friendsKey("alice"),
		friendsKey("bob"),
		friendsKey("carol"),
	}

	tests := []struct {
		name    string
		apply   func(c *listCache, ctx context.Context)
		dropped []string
	}{
		{
			name:    "created",
			apply:   func(c *listCache, ctx context.Context) { c.requestCreated(ctx, req) },
			dropped: []string{incomingKey("bob")},
		},
		{
			name:    "accepted",
			apply:   func(c *listCache, ctx context.Context) { c.requestAccepted(ctx, req) },
			dropped: []string{incomingKey("bob"), friendsKey("alice"), friendsKey("bob")},
		},
		{
			name:    "rejected",
			apply:   func(c *listCache, ctx context.Context) { c.requestRejected(ctx, req) },
			dropped: []string{incomingKey("bob")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mr := newTestRedis(t)
			cache := newListCache(client, time.Minute)
			for _, key := range keys {
				require.NoError(t, mr.Set(key, "[]"))
			}

			tt.apply(cache, context.Background())

			for _, key := range keys {
				assert.Equal(t, !contains(tt.dropped, key), mr.Exists(key), key)
			}
		})
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
