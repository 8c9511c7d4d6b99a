package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/settlement-engine/pkg/config"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
	"github.com/angelmondragon/settlement-engine/pkg/pubsub"
)

// NewPublisher picks the channel named by the notification transport setting.
// The returned close func releases broker connections and is never nil.
func NewPublisher(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Publisher, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(cfg.Notification.Transport)) {
	case config.NotificationTransportPubSub:
		client, err := pubsub.Open(ctx, cfg.PubSub, logg)
		if err != nil {
			return nil, noop, fmt.Errorf("pubsub notifications: %w", err)
		}
		pub, err := NewPubSubPublisher(client)
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return pub, client.Close, nil
	case config.NotificationTransportKafka:
		pub, err := NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic)
		if err != nil {
			return nil, noop, fmt.Errorf("kafka notifications: %w", err)
		}
		return pub, pub.Close, nil
	default:
		return LogPublisher{Logg: logg}, noop, nil
	}
}
