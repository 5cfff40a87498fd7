package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FriendRequest status constants
const (
	FriendRequestStatusPending  = "pending"
	FriendRequestStatusAccepted = "accepted"
	FriendRequestStatusRejected = "rejected"
)

// ErrRequestNotPending is returned when a resolved request is asked to
// transition again.
var ErrRequestNotPending = errors.New("friend request is not pending")

// FriendRequest is a directed proposal from sender to receiver. Only one
// pending row may exist per (sender, receiver); the reverse direction is a
// different key.
type FriendRequest struct {
	ID         string    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SenderID   string    `gorm:"type:uuid;not null;index;uniqueIndex:idx_friend_requests_pending_pair,where:status = 'pending'" json:"sender_id"`
	ReceiverID string    `gorm:"type:uuid;not null;index;uniqueIndex:idx_friend_requests_pending_pair,where:status = 'pending'" json:"receiver_id"`
	Status     string    `gorm:"type:varchar(20);default:'pending';not null" json:"status"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (r *FriendRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (FriendRequest) TableName() string {
	return "friend_requests"
}

// NewFriendRequest builds a pending request stamped with now.
func NewFriendRequest(senderID, receiverID string, now time.Time) *FriendRequest {
	return &FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     FriendRequestStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (r *FriendRequest) IsPending() bool {
	return r.Status == FriendRequestStatusPending
}

// Accept moves a pending request to accepted and returns the friendship edge
// it produces.
func (r *FriendRequest) Accept(now time.Time) (*Friendship, error) {
	if !r.IsPending() {
		return nil, ErrRequestNotPending
	}
	r.Status = FriendRequestStatusAccepted
	r.UpdatedAt = now
	return NewFriendship(r.SenderID, r.ReceiverID, now), nil
}

// Reject moves a pending request to rejected.
func (r *FriendRequest) Reject(now time.Time) error {
	if !r.IsPending() {
		return ErrRequestNotPending
	}
	r.Status = FriendRequestStatusRejected
	r.UpdatedAt = now
	return nil
}

// IncomingRequest is a pending request joined with its sender's profile.
type IncomingRequest struct {
	ID        string      `json:"id"`
	SenderID  string      `json:"sender_id"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	Sender    UserProfile `json:"sender"`
}
