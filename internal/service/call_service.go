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

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 50
)

type CallService interface {
	StartCall(ctx context.Context, p Principal, receiverID string) (*model.CallSession, error)
	EndCall(ctx context.Context, p Principal, callID string) (*model.CallSession, error)
	History(ctx context.Context, p Principal, limit int) ([]model.CallHistoryEntry, error)
}

type callService struct {
	callRepo repository.CallRepository
	userRepo repository.UserRepository
	events   EventPublisher
	clock    Clock
}

func NewCallService(
	callRepo repository.CallRepository,
	userRepo repository.UserRepository,
	events EventPublisher,
	clock Clock,
) CallService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &callService{
		callRepo: callRepo,
		userRepo: userRepo,
		events:   events,
		clock:    clock,
	}
}

// StartCall records a new active session. Sessions are independent: any
// number may be active between the same users at once.
func (s *callService) StartCall(ctx context.Context, p Principal, receiverID string) (*model.CallSession, error) {
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
		return nil, newError(ErrValidation, "cannot call yourself")
	}

	exists, err := s.userRepo.Exists(ctx, receiverID)
	if err != nil {
		return nil, fmt.Errorf("check receiver: %w", err)
	}
	if !exists {
		return nil, newError(ErrValidation, "receiver does not exist")
	}

	call := model.NewCallSession(p.UserID, receiverID, s.clock.Now())
	if err := s.callRepo.Create(ctx, call); err != nil {
		return nil, fmt.Errorf("create call session: %w", err)
	}
	callSessionsTotal.WithLabelValues("started").Inc()

	logrus.WithFields(logrus.Fields{
		"call_id":     call.ID,
		"caller_id":   call.CallerID,
		"receiver_id": call.ReceiverID,
	}).Info("Call started")

	s.publish(ctx, Event{
		Type:    EventCallStarted,
		UserID:  call.ReceiverID,
		ActorID: call.CallerID,
		Data:    map[string]interface{}{"call_id": call.ID},
	})
	return call, nil
}

// EndCall ends a session the caller took part in. Ending an already ended
// session succeeds again and re-stamps ended_at and the duration.
func (s *callService) EndCall(ctx context.Context, p Principal, callID string) (*model.CallSession, error) {
	p, err := p.normalize()
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(callID) == "" {
		return nil, newError(ErrValidation, "call_id is required")
	}
	callID, ok := canonicalID(callID)
	if !ok {
		return nil, newError(ErrNotFound, "call not found")
	}

	call, err := s.callRepo.End(ctx, callID, p.UserID, s.clock.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(ErrNotFound, "call not found")
	}
	if err != nil {
		return nil, fmt.Errorf("end call session: %w", err)
	}

	callSessionsTotal.WithLabelValues("ended").Inc()
	if call.DurationSeconds != nil {
		callDurationSeconds.Observe(float64(*call.DurationSeconds))
	}

	logrus.WithFields(logrus.Fields{
		"call_id":          call.ID,
		"ended_by":         p.UserID,
		"duration_seconds": call.DurationSeconds,
	}).Info("Call ended")

	s.publish(ctx, Event{
		Type:    EventCallEnded,
		UserID:  call.Other(p.UserID),
		ActorID: p.UserID,
		Data: map[string]interface{}{
			"call_id":          call.ID,
			"duration_seconds": call.DurationSeconds,
		},
	})
	return call, nil
}

// History lists the caller's sessions newest first. limit is clamped to
// 1..MaxHistoryLimit, zero or negative meaning DefaultHistoryLimit.
func (s *callService) History(ctx context.Context, p Principal, limit int) ([]model.CallHistoryEntry, error) {
	p, err := p.normalize()
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	entries, err := s.callRepo.History(ctx, p.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("call history: %w", err)
	}
	if entries == nil {
		entries = []model.CallHistoryEntry{}
	}
	return entries, nil
}

func (s *callService) publish(ctx context.Context, event Event) {
	if s.events == nil {
		return
	}
	event.Timestamp = s.clock.Now()
	s.events.Publish(ctx, event)
}
