package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

const (
	EventTypeReserved    = "booking.appointment.reserved.v1"
	DefaultReservedTopic = EventTypeReserved
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier publishes one message per reservation keyed by professional id, so all events for a
// professional land on one partition in commit order.
type KafkaNotifier struct {
	writer MessageWriter
	topic  string
}

func NewKafkaNotifier(writer MessageWriter, topic string) *KafkaNotifier {
	if topic == "" {
		topic = DefaultReservedTopic
	}
	return &KafkaNotifier{writer: writer, topic: topic}
}

// NewKafkaWriter builds the writer used in production.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
}

type reservedPayload struct {
	EventID        string    `json:"event_id"`
	AppointmentID  string    `json:"appointment_id"`
	SalonID        string    `json:"salon_id"`
	ProfessionalID string    `json:"professional_id"`
	ClientID       string    `json:"client_id"`
	ServiceID      string    `json:"service_id"`
	Date           string    `json:"date"`
	StartTime      string    `json:"start_time"`
	EndTime        string    `json:"end_time"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (n *KafkaNotifier) Notify(ctx context.Context, ev Event) error {
	eventID := uuid.NewString()
	payload, err := json.Marshal(reservedPayload{
		EventID:        eventID,
		AppointmentID:  ev.AppointmentID,
		SalonID:        ev.SalonID,
		ProfessionalID: ev.ProfessionalID,
		ClientID:       ev.ClientID,
		ServiceID:      ev.ServiceID,
		Date:           ev.Date.String(),
		StartTime:      ev.Start.String(),
		EndTime:        ev.End.String(),
		OccurredAt:     ev.OccurredAt,
	})
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic:   n.topic,
		Key:     []byte(ev.ProfessionalID),
		Value:   payload,
		Headers: kafkax.EventHeaders(eventID, EventTypeReserved),
	}
	msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", EventTypeReserved, err)
	}
	return nil
}
