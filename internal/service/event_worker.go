package service

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"linkup/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const maxResubscribeDelay = 30 * time.Second

// deliverySource is the part of the RabbitMQ client the worker consumes
// from. Each call returns a fresh stream.
type deliverySource interface {
	Consume(exchange, queue, routingKey, consumer string) (<-chan amqp.Delivery, error)
}

// EventWorker consumes events from RabbitMQ and pushes them to the
// websocket hub. When the delivery stream closes, as it does after a
// broker restart, the worker subscribes again with backoff until it
// succeeds or is stopped.
type EventWorker struct {
	source     deliverySource
	hub        Broadcaster
	retryDelay time.Duration
	stopChan   chan struct{}
	stopOnce   sync.Once
}

func NewEventWorker(rabbitMQ *util.RabbitMQClient, hub Broadcaster) *EventWorker {
	var source deliverySource
	if rabbitMQ != nil {
		source = rabbitMQ
	}
	return newEventWorker(source, hub, time.Second)
}

func newEventWorker(source deliverySource, hub Broadcaster, retryDelay time.Duration) *EventWorker {
	return &EventWorker{
		source:     source,
		hub:        hub,
		retryDelay: retryDelay,
		stopChan:   make(chan struct{}),
	}
}

// Start subscribes once and begins consuming in a goroutine. Only the first
// subscription failure is returned; later ones are retried.
func (w *EventWorker) Start() error {
	if w.source == nil {
		return errors.New("rabbitmq not available")
	}

	msgs, err := w.subscribe()
	if err != nil {
		return err
	}

	go w.run(msgs)
	return nil
}

func (w *EventWorker) subscribe() (<-chan amqp.Delivery, error) {
	return w.source.Consume(EventsExchange, EventsQueue, EventsRoutingKey, "event_worker")
}

func (w *EventWorker) run(msgs <-chan amqp.Delivery) {
	logrus.Info("Event worker started, consuming messages")
	for {
		if stopped := w.consume(msgs); stopped {
			break
		}

		logrus.Warn("Event queue closed, resubscribing")
		next, ok := w.resubscribe()
		if !ok {
			break
		}
		eventWorkerRestartsTotal.Inc()
		msgs = next
	}
	logrus.Info("Event worker stopped")
}

// consume drains msgs. It reports whether it returned because the worker
// was stopped rather than because msgs closed.
func (w *EventWorker) consume(msgs <-chan amqp.Delivery) bool {
	for {
		select {
		case <-w.stopChan:
			return true
		case msg, ok := <-msgs:
			if !ok {
				return false
			}
			if err := w.handle(msg.Body); err != nil {
				// Malformed bodies are never going to parse; drop them.
				logrus.WithError(err).Error("Dropping malformed event")
				msg.Nack(false, false)
				continue
			}
			msg.Ack(false)
		}
	}
}

func (w *EventWorker) resubscribe() (<-chan amqp.Delivery, bool) {
	delay := w.retryDelay
	for {
		select {
		case <-w.stopChan:
			return nil, false
		case <-time.After(delay):
		}

		msgs, err := w.subscribe()
		if err == nil {
			logrus.Info("Event worker resubscribed")
			return msgs, true
		}

		delay *= 2
		if delay > maxResubscribeDelay {
			delay = maxResubscribeDelay
		}
		logrus.WithError(err).WithField("retry_in", delay).Warn("Failed to resubscribe event worker")
	}
}

func (w *EventWorker) handle(body []byte) error {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}
	if event.UserID == "" {
		return errors.New("event has no recipient")
	}

	if w.hub != nil {
		w.hub.BroadcastToUser(event.UserID, event.Payload())
	}
	logrus.WithFields(logrus.Fields{
		"event":   event.Type,
		"user_id": event.UserID,
	}).Debug("Event pushed to websocket")
	return nil
}

// Stop stops the consumer goroutine. It is safe to call more than once.
func (w *EventWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}
