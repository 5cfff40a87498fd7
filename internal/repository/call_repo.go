package repository

import (
	"context"
	"time"

	"linkup/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CallRepository interface {
	Create(ctx context.Context, call *model.CallSession) error
	End(ctx context.Context, callID, userID string, now time.Time) (*model.CallSession, error)
	History(ctx context.Context, userID string, limit int) ([]model.CallHistoryEntry, error)
}

type callRepository struct {
	db *gorm.DB
}

func NewCallRepository(db *gorm.DB) CallRepository {
	return &callRepository{db: db}
}

func (r *callRepository) Create(ctx context.Context, call *model.CallSession) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(call).Error
	})
}

// End stamps the session as ended if userID took part in it. The predicate
// does not look at status, so an ended call can be ended again.
func (r *callRepository) End(ctx context.Context, callID, userID string, now time.Time) (*model.CallSession, error) {
	var call model.CallSession

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND (caller_id = ? OR receiver_id = ?)", callID, userID, userID).
			First(&call).Error
		if err != nil {
			return translateError(err)
		}

		call.End(now)

		return tx.Model(&model.CallSession{}).
			Where("id = ?", call.ID).
			Updates(map[string]interface{}{
				"status":           call.Status,
				"ended_at":         call.EndedAt,
				"duration_seconds": call.DurationSeconds,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &call, nil
}

// History lists sessions userID took part in, newest first, with the other
// participant's profile resolved per row.
func (r *callRepository) History(ctx context.Context, userID string, limit int) ([]model.CallHistoryEntry, error) {
	var entries []model.CallHistoryEntry
	err := r.db.WithContext(ctx).Raw(`
		SELECT c.id, c.status, c.caller_id, c.receiver_id,
		       c.started_at, c.ended_at, c.duration_seconds,
		       u.id AS other_user_id,
		       u.display_name AS other_user_name,
		       u.avatar_url AS other_user_avatar
		FROM call_sessions c
		INNER JOIN users u ON u.id = CASE
			WHEN c.caller_id = ? THEN c.receiver_id
			ELSE c.caller_id
		END
		WHERE c.caller_id = ? OR c.receiver_id = ?
		ORDER BY c.started_at DESC
		LIMIT ?
	`, userID, userID, userID, limit).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.CallHistoryEntry{}
	}
	return entries, nil
}
