package repository

import (
	"context"
	"strings"

	"linkup/internal/model"

	"gorm.io/gorm"
)

// UserRepository reads the identity directory.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, query, excludeID string, limit int) ([]model.UserProfile, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Search matches query as a case-insensitive substring of display_name or
// email. LIKE wildcards in query are matched literally.
func (r *userRepository) Search(ctx context.Context, query, excludeID string, limit int) ([]model.UserProfile, error) {
	pattern := "%" + escapeLike(query) + "%"

	var users []model.UserProfile
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Select("id, display_name, email, avatar_url, last_seen").
		Where("(display_name ILIKE ? OR email ILIKE ?) AND id <> ?", pattern, pattern, excludeID).
		Limit(limit).
		Scan(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
