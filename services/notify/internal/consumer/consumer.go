// Package consumer turns domain events into user-facing notifications.
// Delivery is a structured log line per recipient.
package consumer

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/diagnosis/luxsuv-reservations/pkg/events"
	"github.com/diagnosis/luxsuv-reservations/pkg/logger"
)

// Queue is the NATS queue group shared by notify replicas so each event is
// handled once.
const Queue = "notify"

var Subjects = []string{
	events.UserRegistered,
	events.ReservationCreated,
	events.ReservationUpdated,
	events.ReservationDeleted,
}

type Consumer struct {
	sub      events.Subscriber
	consumed *prometheus.CounterVec
}

func New(sub events.Subscriber, reg prometheus.Registerer) *Consumer {
	consumed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_events_total",
		Help: "Events consumed by subject and outcome.",
	}, []string{"subject", "outcome"})
	reg.MustRegister(consumed)
	return &Consumer{sub: sub, consumed: consumed}
}

// Start subscribes to every known subject.
func (c *Consumer) Start() error {
	for _, subject := range Subjects {
		if err := c.sub.QueueSubscribe(subject, Queue, c.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
	}
	logger.Info("Notify consumer started", "subjects", Subjects, "queue", Queue)
	return nil
}

func (c *Consumer) Handle(msg *events.Message) {
	if err := c.notify(msg); err != nil {
		c.consumed.WithLabelValues(msg.Subject, "error").Inc()
		logger.Error("Failed to handle event", "error", err, "subject", msg.Subject, "event_id", msg.ID)
		return
	}
	c.consumed.WithLabelValues(msg.Subject, "ok").Inc()
}

func (c *Consumer) notify(msg *events.Message) error {
	switch msg.Subject {
	case events.UserRegistered:
		var ev events.UserRegisteredEvent
		if err := msg.Decode(&ev); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Subject, err)
		}
		logger.Info("Notification: welcome", "user_id", ev.UserID, "email", ev.Email, "event_id", msg.ID)

	case events.ReservationCreated, events.ReservationUpdated, events.ReservationDeleted:
		var ev events.ReservationEvent
		if err := msg.Decode(&ev); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Subject, err)
		}
		logger.Info("Notification: reservation "+action(msg.Subject),
			"user_id", ev.UserID,
			"reservation_id", ev.ReservationID,
			"start_date", ev.StartDate,
			"end_date", ev.EndDate,
			"changes", ev.Changes,
			"event_id", msg.ID,
		)

	default:
		return fmt.Errorf("unexpected subject %q", msg.Subject)
	}
	return nil
}

func action(subject string) string {
	switch subject {
	case events.ReservationCreated:
		return "confirmed"
	case events.ReservationUpdated:
		return "changed"
	default:
		return "cancelled"
	}
}
