// README: Kafka producer publishing booking lifecycle events (sarama SyncProducer).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"taxibook/internal/config"
	"taxibook/internal/logger"
	"taxibook/internal/modules/booking"
	"taxibook/internal/types"
)

const (
	TypeBookingCreated       = "booking.created"
	TypeBookingUpdated       = "booking.updated"
	TypeBookingStatusChanged = "booking.status_changed"
	TypeBookingDeleted       = "booking.deleted"
)

type Event struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	BookingID types.ID  `json:"booking_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

type StatusChange struct {
	From   booking.Status `json:"from"`
	To     booking.Status `json:"to"`
	UserID types.ID       `json:"user_id"`
}

// Producer is safe to call on a nil receiver; events are then dropped.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Successes = true
	sc.Producer.Timeout = 5 * time.Second

	p, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	log.WithField("brokers", cfg.Brokers).Info("Kafka producer connected")
	return &Producer{producer: p, topic: cfg.BookingsTopic, log: log}, nil
}

func (p *Producer) PublishBookingCreated(ctx context.Context, b *booking.Booking) error {
	return p.publishEvent(ctx, Event{Type: TypeBookingCreated, BookingID: b.ID, Data: b})
}

func (p *Producer) PublishBookingUpdated(ctx context.Context, b *booking.Booking) error {
	return p.publishEvent(ctx, Event{Type: TypeBookingUpdated, BookingID: b.ID, Data: b})
}

func (p *Producer) PublishBookingStatusChanged(ctx context.Context, b *booking.Booking, from booking.Status) error {
	return p.publishEvent(ctx, Event{
		Type:      TypeBookingStatusChanged,
		BookingID: b.ID,
		Data:      StatusChange{From: from, To: b.Status, UserID: b.UserID},
	})
}

func (p *Producer) PublishBookingDeleted(ctx context.Context, id types.ID) error {
	return p.publishEvent(ctx, Event{Type: TypeBookingDeleted, BookingID: id})
}

// publishEvent keys messages by booking ID so one booking's events stay in
// partition order.
func (p *Producer) publishEvent(ctx context.Context, ev Event) error {
	if p == nil || p.producer == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Type, err)
	}
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.BookingID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(ev.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("send %s: %w", ev.Type, err)
	}
	p.log.WithFields(map[string]interface{}{
		"event_type": ev.Type,
		"booking_id": ev.BookingID,
		"partition":  partition,
		"offset":     offset,
	}).Debug("event published")
	return nil
}

func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
