package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"linkup/internal/model"
	"linkup/internal/repository"
)

const (
	MinSearchQueryLength = 2
	MaxSearchResults     = 20
)

// DirectoryService exposes read-only views of the identity directory.
type DirectoryService interface {
	Search(ctx context.Context, p Principal, query string) ([]model.UserProfile, error)
	GetUser(ctx context.Context, p Principal, userID string) (*model.UserDetail, error)
}

type directoryService struct {
	userRepo       repository.UserRepository
	friendshipRepo repository.FriendshipRepository
}

func NewDirectoryService(userRepo repository.UserRepository, friendshipRepo repository.FriendshipRepository) DirectoryService {
	return &directoryService{userRepo: userRepo, friendshipRepo: friendshipRepo}
}

// Search finds users whose display name or email contains query, ignoring
// case. The caller is never part of the result.
func (s *directoryService) Search(ctx context.Context, p Principal, query string) ([]model.UserProfile, error) {
	p, err := p.normalize()
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinSearchQueryLength {
		return nil, newError(ErrValidation, fmt.Sprintf("query must be at least %d characters", MinSearchQueryLength))
	}

	users, err := s.userRepo.Search(ctx, query, p.UserID, MaxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	if users == nil {
		users = []model.UserProfile{}
	}
	return users, nil
}

// GetUser returns userID's profile and whether the caller is friends with
// them.
func (s *directoryService) GetUser(ctx context.Context, p Principal, userID string) (*model.UserDetail, error) {
	p, err := p.normalize()
	if err != nil {
		return nil, err
	}
	userID, ok := canonicalID(userID)
	if !ok {
		return nil, newError(ErrNotFound, "user not found")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(ErrNotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	isFriend := false
	if user.ID != p.UserID {
		isFriend, err = s.friendshipRepo.AreFriends(ctx, p.UserID, user.ID)
		if err != nil {
			return nil, fmt.Errorf("check friendship: %w", err)
		}
	}

	return &model.UserDetail{UserProfile: user.ToProfile(), IsFriend: isFriend}, nil
}
