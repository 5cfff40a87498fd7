package repository

import (
	"context"

	"linkup/internal/model"

	"gorm.io/gorm"
)

// FriendshipRepository reads the friendship graph. Edges are only written by
// FriendRequestRepository.Accept.
type FriendshipRepository interface {
	ListFriends(ctx context.Context, userID string) ([]model.UserProfile, error)
	AreFriends(ctx context.Context, a, b string) (bool, error)
}

type friendshipRepository struct {
	db    *gorm.DB
	cache *listCache
}

func NewFriendshipRepository(db *gorm.DB, cache *listCache) FriendshipRepository {
	return &friendshipRepository{db: db, cache: cache}
}

// ListFriends returns the profiles on the other side of every edge touching
// userID, most recently seen first.
func (r *friendshipRepository) ListFriends(ctx context.Context, userID string) ([]model.UserProfile, error) {
	key := friendsKey(userID)

	var friends []model.UserProfile
	if r.cache.get(ctx, key, &friends) {
		return friends, nil
	}

	err := r.db.WithContext(ctx).Raw(`
		SELECT u.id, u.display_name, u.email, u.avatar_url, u.last_seen
		FROM users u
		INNER JOIN friendships f ON (f.user1_id = u.id OR f.user2_id = u.id)
		WHERE (f.user1_id = ? OR f.user2_id = ?) AND u.id <> ?
		ORDER BY u.last_seen DESC
	`, userID, userID, userID).Scan(&friends).Error
	if err != nil {
		return nil, err
	}
	if friends == nil {
		friends = []model.UserProfile{}
	}

	r.cache.set(ctx, key, friends)
	return friends, nil
}

func (r *friendshipRepository) AreFriends(ctx context.Context, a, b string) (bool, error) {
	low, high := model.NormalizePair(a, b)

	var count int64
	err := r.db.WithContext(ctx).Model(&model.Friendship{}).
		Where("user1_id = ? AND user2_id = ?", low, high).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
