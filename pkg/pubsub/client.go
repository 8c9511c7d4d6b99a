// Package pubsub publishes settlement notifications to a Google Cloud
// Pub/Sub topic, ordered per shopper.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/settlement-engine/pkg/config"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errTopicRequired     = errors.New("pubsub notification topic is required")
	errClosed            = errors.New("pubsub client not initialized")
)

// Client owns one ordered publisher for the notification topic.
type Client struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
}

// TopicName expands a short topic id into its resource name. Names that are
// already fully qualified pass through.
func TopicName(projectID, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", errTopicRequired
	}
	if strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/") {
		return topic, nil
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return "", errProjectIDRequired
	}
	return "projects/" + projectID + "/topics/" + topic, nil
}

// Open connects and refuses to start when the topic is missing, since
// publishing would otherwise fail on the first order event.
func Open(ctx context.Context, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errProjectIDRequired
	}
	topic, err := TopicName(cfg.ProjectID, cfg.NotificationTopic)
	if err != nil {
		return nil, err
	}

	psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: psClient, topic: topic}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	c.publisher = psClient.Publisher(topic)
	c.publisher.EnableMessageOrdering = true

	if logg != nil {
		logg.Info(logg.WithField(ctx, "pubsub_topic", topic), "pubsub publisher ready")
	}
	return c, nil
}

// Publish blocks until the server acknowledges the message. Messages sharing
// orderingKey are delivered in publish order.
func (c *Client) Publish(ctx context.Context, data []byte, orderingKey string, attrs map[string]string) error {
	if c == nil || c.publisher == nil {
		return errClosed
	}
	result := c.publisher.Publish(ctx, &pubsub.Message{
		Data:        data,
		OrderingKey: orderingKey,
		Attributes:  attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		// a failed ordered publish pauses its key until resumed
		if orderingKey != "" {
			c.publisher.ResumePublish(orderingKey)
		}
		return fmt.Errorf("publish to %s: %w", c.topic, err)
	}
	return nil
}

// Ping checks that the topic still exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errClosed
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	switch {
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("topic %s does not exist", c.topic)
	case err != nil:
		return fmt.Errorf("checking topic %s: %w", c.topic, err)
	}
	return nil
}

// Close flushes pending messages and releases the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if c.publisher != nil {
		c.publisher.Stop()
	}
	return c.client.Close()
}
