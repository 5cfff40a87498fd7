package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"linkup/internal/model"
	"linkup/internal/repository"

	"github.com/sirupsen/logrus"
)

type FriendshipService interface {
	SubmitRequest(ctx context.Context, p Principal, receiverID string) (*model.FriendRequest, error)
	ListIncoming(ctx context.Context, p Principal) ([]model.IncomingRequest, error)
	Accept(ctx context.Context, p Principal, requestID string) error
	Reject(ctx context.Context, p Principal, requestID string) error
	ListFriends(ctx context.Context, p Principal) ([]model.UserProfile, error)
}

type friendshipService struct {
	requestRepo    repository.FriendRequestRepository
	friendshipRepo repository.FriendshipRepository
	userRepo       repository.UserRepository
	events         EventPublisher
	clock          Clock
}

func NewFriendshipService(
	requestRepo repository.FriendRequestRepository,
	friendshipRepo repository.FriendshipRepository,
	userRepo repository.UserRepository,
	events EventPublisher,
	clock Clock,
) FriendshipService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &friendshipService{
		requestRepo:    requestRepo,
		friendshipRepo: friendshipRepo,
		userRepo:       userRepo,
		events:         events,
		clock:          clock,
	}
}

// SubmitRequest creates a pending request from the caller to receiverID.
// A pending request in the same direction is a conflict; one in the
// opposite direction is not.
func (s *friendshipService) SubmitRequest(ctx context.Context, p Principal, receiverID string) (*model.FriendRequest, error) {
	p, err := p.normalize()
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(receiverID) == "" {
		return nil, newError(ErrValidation, "receiver_id is required")
	}
	receiverID, ok := canonicalID(receiverID)
	if !ok {
		return nil, newError(ErrValidation, "receiver_id must be a valid user id")
	}
	if receiverID == p.UserID {
		return nil, newError(ErrValidation, "cannot send a friend request to yourself")
	}

	exists, err := s.userRepo.Exists(ctx, receiverID)
	if err != nil {
		return nil, fmt.Errorf("check receiver: %w", err)
	}
	if !exists {
		return nil, newError(ErrValidation, "receiver does not exist")
	}

	req := model.NewFriendRequest(p.UserID, receiverID, s.clock.Now())
	if err := s.requestRepo.Create(ctx, req); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			friendRequestsTotal.WithLabelValues("duplicate").Inc()
			return nil, newError(ErrConflict, "friend request already pending")
		}
		return nil, fmt.Errorf("create friend request: %w", err)
	}
	friendRequestsTotal.WithLabelValues("submitted").Inc()

	logrus.WithFields(logrus.Fields{
		"request_id":  req.ID,
		"sender_id":   req.SenderID,
		"receiver_id": req.ReceiverID,
	}).Info("Friend request submitted")

	s.publish(ctx, Event{
		Type:    EventFriendRequestCreated,
		UserID:  req.ReceiverID,
		ActorID: req.SenderID,
		Data:    map[string]interface{}{"request_id": req.ID},
	})

	return req, nil
}

// ListIncoming returns pending requests addressed to the caller, newest
// first.
func (s *friendshipService) ListIncoming(ctx context.Context, p Principal) ([]model.IncomingRequest, error) {
	p, err := p.normalize()
	if err != nil {
		return nil, err
	}

	requests, err := s.requestRepo.ListIncoming(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list incoming requests: %w", err)
	}
	if requests == nil {
		requests = []model.IncomingRequest{}
	}
	return requests, nil
}

// Accept turns a pending request addressed to the caller into a friendship.
func (s *friendshipService) Accept(ctx context.Context, p Principal, requestID string) error {
	p, err := p.normalize()
	if err != nil {
		return err
	}
	requestID, ok := canonicalID(requestID)
	if !ok {
		return newError(ErrNotFound, "friend request not found")
	}

	req, edge, err := s.requestRepo.Accept(ctx, requestID, p.UserID, s.clock.Now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return newError(ErrNotFound, "friend request not found")
	case errors.Is(err, repository.ErrDuplicate):
		friendRequestsTotal.WithLabelValues("conflict").Inc()
		return newError(ErrConflict, "friendship already exists")
	case err != nil:
		return fmt.Errorf("accept friend request: %w", err)
	}
	friendRequestsTotal.WithLabelValues("accepted").Inc()

	logrus.WithFields(logrus.Fields{
		"request_id": req.ID,
		"user1_id":   edge.User1ID,
		"user2_id":   edge.User2ID,
	}).Info("Friend request accepted")

	s.publish(ctx, Event{
		Type:    EventFriendRequestAccepted,
		UserID:  req.SenderID,
		ActorID: req.ReceiverID,
		Data:    map[string]interface{}{"request_id": req.ID},
	})
	return nil
}

// Reject resolves a pending request addressed to the caller as rejected.
func (s *friendshipService) Reject(ctx context.Context, p Principal, requestID string) error {
	p, err := p.normalize()
	if err != nil {
		return err
	}
	requestID, ok := canonicalID(requestID)
	if !ok {
		return newError(ErrNotFound, "friend request not found")
	}

	req, err := s.requestRepo.Reject(ctx, requestID, p.UserID, s.clock.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return newError(ErrNotFound, "friend request not found")
	}
	if err != nil {
		return fmt.Errorf("reject friend request: %w", err)
	}
	friendRequestsTotal.WithLabelValues("rejected").Inc()

	logrus.WithFields(logrus.Fields{
		"request_id": req.ID,
		"sender_id":  req.SenderID,
	}).Info("Friend request rejected")

	s.publish(ctx, Event{
		Type:    EventFriendRequestRejected,
		UserID:  req.SenderID,
		ActorID: req.ReceiverID,
		Data:    map[string]interface{}{"request_id": req.ID},
	})
	return nil
}

// ListFriends returns the caller's friends, most recently seen first.
func (s *friendshipService) ListFriends(ctx context.Context, p Principal) ([]model.UserProfile, error) {
	p, err := p.normalize()
	if err != nil {
		return nil, err
	}

	friends, err := s.friendshipRepo.ListFriends(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	if friends == nil {
		friends = []model.UserProfile{}
	}
	return friends, nil
}

func (s *friendshipService) publish(ctx context.Context, event Event) {
	if s.events == nil {
		return
	}
	event.Timestamp = s.clock.Now()
	s.events.Publish(ctx, event)
}
