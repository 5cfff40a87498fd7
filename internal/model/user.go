package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a directory record. The identity provider owns these rows; this
// service only reads them and refreshes last_seen on presence changes.
type User struct {
	ID          string    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Email       string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	DisplayName string    `gorm:"type:varchar(255);not null" json:"display_name"`
	AvatarURL   *string   `gorm:"type:text" json:"avatar_url,omitempty"`
	LastSeen    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"last_seen"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

// UserProfile is the public projection of a User.
type UserProfile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	LastSeen    time.Time `json:"last_seen"`
}

// UserDetail is a profile as seen by a specific caller.
type UserDetail struct {
	UserProfile
	IsFriend bool `json:"is_friend"`
}

func (u *User) ToProfile() UserProfile {
	return UserProfile{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		AvatarURL:   u.AvatarURL,
		LastSeen:    u.LastSeen,
	}
}
