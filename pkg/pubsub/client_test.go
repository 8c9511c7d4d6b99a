package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/settlement-engine/pkg/config"
)

func TestTopicName(t *testing.T) {
	cases := map[string]string{
		"notifications":                "projects/proj-1/topics/notifications",
		" notifications ":              "projects/proj-1/topics/notifications",
		"projects/other/topics/alerts": "projects/other/topics/alerts",
	}
	for in, want := range cases {
		got, err := TopicName("proj-1", in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := TopicName("proj-1", "  ")
	assert.ErrorIs(t, err, errTopicRequired)
	_, err = TopicName("", "notifications")
	assert.ErrorIs(t, err, errProjectIDRequired)
}

func TestOpenRequiresProject(t *testing.T) {
	_, err := Open(context.Background(), config.PubSubConfig{NotificationTopic: "n"}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.ErrorIs(t, c.Publish(context.Background(), []byte("{}"), "user-1", nil), errClosed)
	assert.ErrorIs(t, c.Ping(context.Background()), errClosed)
	assert.NoError(t, c.Close())
}
