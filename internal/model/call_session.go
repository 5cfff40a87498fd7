package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CallSession status constants
const (
	CallStatusActive = "active"
	CallStatusEnded  = "ended"
)

// CallSession records who called whom and for how long. Media and
// signaling are handled elsewhere.
type CallSession struct {
	ID              string     `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CallerID        string     `gorm:"type:uuid;not null;index" json:"caller_id"`
	ReceiverID      string     `gorm:"type:uuid;not null;index" json:"receiver_id"`
	Status          string     `gorm:"type:varchar(20);default:'active';not null" json:"status"`
	StartedAt       time.Time  `gorm:"not null;index" json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
}

// BeforeCreate hook to generate UUID
func (c *CallSession) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (CallSession) TableName() string {
	return "call_sessions"
}

// NewCallSession starts an active session at now.
func NewCallSession(callerID, receiverID string, now time.Time) *CallSession {
	return &CallSession{
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     CallStatusActive,
		StartedAt:  now,
	}
}

// IsParticipant reports whether userID is the caller or the receiver.
func (c *CallSession) IsParticipant(userID string) bool {
	return c.CallerID == userID || c.ReceiverID == userID
}

// Other returns the counterpart of userID in the session.
func (c *CallSession) Other(userID string) string {
	if c.CallerID == userID {
		return c.ReceiverID
	}
	return c.CallerID
}

// End stamps the session as ended at now. It does not check the current
// status: ending an ended session overwrites ended_at and the duration.
func (c *CallSession) End(now time.Time) {
	duration := int64(now.Sub(c.StartedAt) / time.Second)
	if duration < 0 {
		duration = 0
	}
	endedAt := now
	c.Status = CallStatusEnded
	c.EndedAt = &endedAt
	c.DurationSeconds = &duration
}

// CallHistoryEntry is a session seen from one participant.
type CallHistoryEntry struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	CallerID        string     `json:"caller_id"`
	ReceiverID      string     `json:"receiver_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
	OtherUserID     string     `json:"other_user_id"`
	OtherUserName   string     `json:"other_user_name"`
	OtherUserAvatar *string    `json:"other_user_avatar,omitempty"`
}
