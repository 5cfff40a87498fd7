package model

import "time"

// Friendship is an undirected edge stored as a normalized pair: User1ID is
// always the lower id. The composite primary key allows one row per pair.
type Friendship struct {
	User1ID   string    `gorm:"type:uuid;primaryKey;check:chk_friendships_order,user1_id < user2_id" json:"user1_id"`
	User2ID   string    `gorm:"type:uuid;primaryKey;index" json:"user2_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name
func (Friendship) TableName() string {
	return "friendships"
}

// NormalizePair orders two user ids as (low, high).
func NormalizePair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// NewFriendship builds the normalized edge between a and b regardless of
// which side initiated.
func NewFriendship(a, b string, now time.Time) *Friendship {
	low, high := NormalizePair(a, b)
	return &Friendship{
		User1ID:   low,
		User2ID:   high,
		CreatedAt: now,
	}
}

// Other returns the counterpart of userID on this edge.
func (f *Friendship) Other(userID string) string {
	if f.User1ID == userID {
		return f.User2ID
	}
	return f.User1ID
}
