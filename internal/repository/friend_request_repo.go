package repository

import (
	"context"
	"errors"
	"time"

	"linkup/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FriendRequestRepository owns friend_requests and, through Accept, the
// friendship rows it creates.
type FriendRequestRepository interface {
	Create(ctx context.Context, req *model.FriendRequest) error
	ListIncoming(ctx context.Context, receiverID string) ([]model.IncomingRequest, error)
	Accept(ctx context.Context, requestID, receiverID string, now time.Time) (*model.FriendRequest, *model.Friendship, error)
	Reject(ctx context.Context, requestID, receiverID string, now time.Time) (*model.FriendRequest, error)
}

type friendRequestRepository struct {
	db    *gorm.DB
	cache *listCache
}

func NewFriendRequestRepository(db *gorm.DB, cache *listCache) FriendRequestRepository {
	return &friendRequestRepository{db: db, cache: cache}
}

// Create inserts a pending request. A pending row with the same sender and
// receiver yields ErrDuplicate.
func (r *friendRequestRepository) Create(ctx context.Context, req *model.FriendRequest) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&model.FriendRequest{}).
			Where("sender_id = ? AND receiver_id = ? AND status = ?",
				req.SenderID, req.ReceiverID, model.FriendRequestStatusPending).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicate
		}

		// The partial unique index catches a racing insert that passed the
		// count above.
		return translateError(tx.Create(req).Error)
	})
	if err != nil {
		return err
	}

	r.cache.requestCreated(ctx, req)
	return nil
}

type incomingRow struct {
	ID              string
	SenderID        string
	Status          string
	CreatedAt       time.Time
	SenderName      string
	SenderEmail     string
	SenderAvatarURL *string
	SenderLastSeen  time.Time
}

func (r *friendRequestRepository) ListIncoming(ctx context.Context, receiverID string) ([]model.IncomingRequest, error) {
	key := incomingKey(receiverID)

	var requests []model.IncomingRequest
	if r.cache.get(ctx, key, &requests) {
		return requests, nil
	}

	var rows []incomingRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT fr.id, fr.sender_id, fr.status, fr.created_at,
		       u.display_name AS sender_name, u.email AS sender_email,
		       u.avatar_url AS sender_avatar_url, u.last_seen AS sender_last_seen
		FROM friend_requests fr
		INNER JOIN users u ON u.id = fr.sender_id
		WHERE fr.receiver_id = ? AND fr.status = ?
		ORDER BY fr.created_at DESC
	`, receiverID, model.FriendRequestStatusPending).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	requests = make([]model.IncomingRequest, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, model.IncomingRequest{
			ID:        row.ID,
			SenderID:  row.SenderID,
			Status:    row.Status,
			CreatedAt: row.CreatedAt,
			Sender: model.UserProfile{
				ID:          row.SenderID,
				DisplayName: row.SenderName,
				Email:       row.SenderEmail,
				AvatarURL:   row.SenderAvatarURL,
				LastSeen:    row.SenderLastSeen,
			},
		})
	}

	r.cache.set(ctx, key, requests)
	return requests, nil
}

// Accept locks the pending request addressed to receiverID, inserts the
// normalized friendship and marks the request accepted in one transaction.
// ErrNotFound covers missing, resolved and foreign requests alike;
// ErrDuplicate means the friendship already exists and nothing was written.
func (r *friendRequestRepository) Accept(ctx context.Context, requestID, receiverID string, now time.Time) (*model.FriendRequest, *model.Friendship, error) {
	var (
		accepted model.FriendRequest
		edge     *model.Friendship
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND receiver_id = ? AND status = ?",
				requestID, receiverID, model.FriendRequestStatusPending).
			First(&accepted).Error
		if err != nil {
			return translateError(err)
		}

		edge, err = accepted.Accept(now)
		if err != nil {
			return ErrNotFound
		}

		if err := tx.Create(edge).Error; err != nil {
			return translateError(err)
		}

		return tx.Model(&model.FriendRequest{}).
			Where("id = ?", accepted.ID).
			Updates(map[string]interface{}{
				"status":     accepted.Status,
				"updated_at": accepted.UpdatedAt,
			}).Error
	})
	if err != nil {
		return nil, nil, err
	}

	r.cache.requestAccepted(ctx, &accepted)
	return &accepted, edge, nil
}

// Reject marks a pending request addressed to receiverID as rejected. Zero
// affected rows is reported as ErrNotFound.
func (r *friendRequestRepository) Reject(ctx context.Context, requestID, receiverID string, now time.Time) (*model.FriendRequest, error) {
	var updated []model.FriendRequest

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&updated).
			Clauses(clause.Returning{}).
			Where("id = ? AND receiver_id = ? AND status = ?",
				requestID, receiverID, model.FriendRequestStatusPending).
			Updates(map[string]interface{}{
				"status":     model.FriendRequestStatusRejected,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, errors.New("reject returned no row")
	}

	r.cache.requestRejected(ctx, &updated[0])
	return &updated[0], nil
}
