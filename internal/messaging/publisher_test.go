package messaging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactless-ordering/internal/models"
)

func TestEncodeNotification(t *testing.T) {
	msg := &models.NotificationMessage{
		ID:        "5f1c3e1a-0000-4000-8000-000000000001",
		Message:   "Order #1000 placed on Table 3",
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	body, err := encode(msg)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, msg.ID, decoded["id"])
	assert.Equal(t, "Order #1000 placed on Table 3", decoded["message"])
	assert.Equal(t, "2024-05-01T12:00:00Z", decoded["timestamp"])
}

func TestSinkNames(t *testing.T) {
	assert.Equal(t, "rabbitmq", (&Publisher{}).Name())
	assert.Equal(t, "nats", (&NATSPublisher{}).Name())
}
