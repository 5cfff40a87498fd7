package repository

import (
	"context"
	"time"

	"linkup/internal/model"
	"linkup/internal/util"

	"github.com/sirupsen/logrus"
)

const (
	friendsCachePrefix  = "friends:"
	incomingCachePrefix = "friend_requests:incoming:"
)

func friendsKey(userID string) string { return friendsCachePrefix + userID }

func incomingKey(receiverID string) string { return incomingCachePrefix + receiverID }

// listCache is a best-effort JSON cache in front of list queries. A nil
// redis client disables it; redis errors are logged and treated as misses.
type listCache struct {
	redis *util.RedisClient
	ttl   time.Duration
}

func newListCache(redis *util.RedisClient, ttl time.Duration) *listCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &listCache{redis: redis, ttl: ttl}
}

func (c *listCache) get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.redis == nil {
		return false
	}
	if err := c.redis.GetJSON(ctx, key, dest); err != nil {
		if err != util.ErrCacheMiss {
			logrus.WithError(err).WithField("key", key).Warn("cache read failed")
		}
		return false
	}
	return true
}

func (c *listCache) set(ctx context.Context, key string, value interface{}) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, key, value, c.ttl); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

func (c *listCache) invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.Delete(ctx, keys...); err != nil {
		logrus.WithError(err).WithField("keys", keys).Warn("cache invalidation failed")
	}
}

// requestCreated drops the receiver's incoming list.
func (c *listCache) requestCreated(ctx context.Context, req *model.FriendRequest) {
	c.invalidate(ctx, incomingKey(req.ReceiverID))
}

// requestAccepted drops the receiver's incoming list and both friend lists.
func (c *listCache) requestAccepted(ctx context.Context, req *model.FriendRequest) {
	c.invalidate(ctx,
		incomingKey(req.ReceiverID),
		friendsKey(req.SenderID),
		friendsKey(req.ReceiverID),
	)
}

// requestRejected drops the receiver's incoming list. Friend lists are
// unchanged.
func (c *listCache) requestRejected(ctx context.Context, req *model.FriendRequest) {
	c.invalidate(ctx, incomingKey(req.ReceiverID))
}
