package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/angelmondragon/settlement-engine/pkg/logger"
)

// Message is what the customer-facing channel receives.
type Message struct {
	UserID      string    `json:"user_id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	OrderNumber string    `json:"order_number,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// Publisher hands a message to the messaging channel.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// LogPublisher only logs; used in dev and when no broker is configured.
type LogPublisher struct {
	Logg *logger.Logger
}

func (p LogPublisher) Publish(ctx context.Context, msg Message) error {
	if p.Logg == nil {
		return nil
	}
	ctx = p.Logg.WithFields(ctx, map[string]any{
		"user_id":      msg.UserID,
		"notification": msg.Type,
		"order_number": msg.OrderNumber,
	})
	p.Logg.Info(ctx, msg.Title)
	return nil
}

type topic interface {
	Publish(ctx context.Context, data []byte, orderingKey string, attrs map[string]string) error
}

// PubSubPublisher publishes JSON messages ordered by user id.
type PubSubPublisher struct {
	topic topic
}

func NewPubSubPublisher(t topic) (*PubSubPublisher, error) {
	if t == nil {
		return nil, errors.New("pubsub topic required")
	}
	return &PubSubPublisher{topic: t}, nil
}

func (p *PubSubPublisher) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	attrs := map[string]string{"user_id": msg.UserID, "event_type": msg.Type}
	if msg.OrderNumber != "" {
		attrs["order_number"] = msg.OrderNumber
	}
	return p.topic.Publish(ctx, data, msg.UserID, attrs)
}

// KafkaPublisher writes messages keyed by user id so a user's notifications stay ordered.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic required")
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.UserID),
		Value: data,
		Time:  msg.SentAt,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
