package repository

import (
	"time"

	"linkup/internal/model"
	"linkup/internal/util"

	"gorm.io/gorm"
)

// Repositories bundles the stores the services depend on.
type Repositories struct {
	Users          UserRepository
	FriendRequests FriendRequestRepository
	Friendships    FriendshipRepository
	Calls          CallRepository
}

// New wires every repository to db. redis may be nil, which disables list
// caching.
func New(db *gorm.DB, redis *util.RedisClient, cacheTTL time.Duration) *Repositories {
	cache := newListCache(redis, cacheTTL)
	return &Repositories{
		Users:          NewUserRepository(db),
		FriendRequests: NewFriendRequestRepository(db, cache),
		Friendships:    NewFriendshipRepository(db, cache),
		Calls:          NewCallRepository(db),
	}
}

// Migrate creates or updates the tables owned by this service. The users
// table belongs to the identity provider and is left alone.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.FriendRequest{},
		&model.Friendship{},
		&model.CallSession{},
	)
}

// MigrateDirectory creates the users table for local and test databases
// that have no identity provider behind them.
func MigrateDirectory(db *gorm.DB) error {
	return db.AutoMigrate(&model.User{})
}
