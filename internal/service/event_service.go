package service

import (
	"context"
	"encoding/json"
	"time"

	"linkup/internal/util"

	"github.com/sirupsen/logrus"
)

// Event types
const (
	EventFriendRequestCreated  = "friend_request.created"
	EventFriendRequestAccepted = "friend_request.accepted"
	EventFriendRequestRejected = "friend_request.rejected"
	EventCallStarted           = "call.started"
	EventCallEnded             = "call.ended"
)

const (
	EventsExchange   = "relationship_events"
	EventsQueue      = "relationship_events_queue"
	EventsRoutingKey = "event"
)

// Event is a committed state change addressed to one user.
type Event struct {
	Type      string                 `json:"type"`
	UserID    string                 `json:"user_id"`
	ActorID   string                 `json:"actor_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Payload flattens the event for the websocket hub.
func (e Event) Payload() map[string]interface{} {
	return map[string]interface{}{
		"type":      e.Type,
		"user_id":   e.UserID,
		"actor_id":  e.ActorID,
		"data":      e.Data,
		"timestamp": e.Timestamp.Format(time.RFC3339),
	}
}

// EventPublisher delivers events after a write has committed. Delivery is
// best effort and never fails the write.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// Broadcaster is the part of the websocket hub the event path needs.
type Broadcaster interface {
	BroadcastToUser(userID string, payload map[string]interface{})
}

type eventService struct {
	rabbitMQ *util.RabbitMQClient
	hub      Broadcaster
}

// NewEventService publishes to RabbitMQ when available and falls back to
// pushing straight to the hub. Either dependency may be nil.
func NewEventService(rabbitMQ *util.RabbitMQClient, hub Broadcaster) EventPublisher {
	return &eventService{
		rabbitMQ: rabbitMQ,
		hub:      hub,
	}
}

func (s *eventService) Publish(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	log := logrus.WithFields(logrus.Fields{
		"event":   event.Type,
		"user_id": event.UserID,
	})

	if s.rabbitMQ != nil {
		body, err := json.Marshal(event)
		if err != nil {
			log.WithError(err).Error("failed to marshal event")
			return
		}
		err = s.rabbitMQ.Publish(ctx, EventsExchange, EventsRoutingKey, body)
		if err == nil {
			eventsPublishedTotal.WithLabelValues("rabbitmq").Inc()
			return
		}
		log.WithError(err).Warn("failed to publish event to RabbitMQ, pushing directly")
	}

	if s.hub != nil {
		s.hub.BroadcastToUser(event.UserID, event.Payload())
		eventsPublishedTotal.WithLabelValues("direct").Inc()
		return
	}

	eventsPublishedTotal.WithLabelValues("dropped").Inc()
}
