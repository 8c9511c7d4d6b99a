package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTopic struct {
	data  []byte
	key   string
	attrs map[string]string
}

func (r *recordingTopic) Publish(_ context.Context, data []byte, key string, attrs map[string]string) error {
	r.data, r.key, r.attrs = data, key, attrs
	return nil
}

func TestPubSubPublisherOrdersByUser(t *testing.T) {
	topic := &recordingTopic{}
	pub, err := NewPubSubPublisher(topic)
	require.NoError(t, err)

	msg := Message{UserID: "user-9", Type: "order_paid", Title: "Paid", OrderNumber: "ORD-7", SentAt: time.Unix(0, 0).UTC()}
	require.NoError(t, pub.Publish(context.Background(), msg))

	assert.Equal(t, "user-9", topic.key)
	assert.Equal(t, map[string]string{"user_id": "user-9", "event_type": "order_paid", "order_number": "ORD-7"}, topic.attrs)
	var decoded Message
	require.NoError(t, json.Unmarshal(topic.data, &decoded))
	assert.Equal(t, msg, decoded)
}

func TestNewPubSubPublisherRequiresTopic(t *testing.T) {
	_, err := NewPubSubPublisher(nil)
	assert.Error(t, err)
}
