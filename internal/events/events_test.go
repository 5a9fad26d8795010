package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	publisher := newKafkaPublisherWithWriter(writer)
	occurred := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	err := publisher.Publish(context.Background(), Event{
		Type:       SessionCreated,
		DealID:     "deal-1",
		SessionID:  "session-1",
		OccurredAt: occurred,
		Data:       map[string]string{"status": "Borrador"},
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "deal-1", string(msg.Key))
	assert.Equal(t, occurred, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "session.created", string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "session.created", decoded["type"])
	assert.Equal(t, "session-1", decoded["session_id"])
	assert.Equal(t, map[string]any{"status": "Borrador"}, decoded["data"])

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestKafkaPublisher_WrapsWriteErrors(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("broker unavailable")
	publisher := newKafkaPublisherWithWriter(&fakeWriter{err: sentinel})

	err := publisher.Publish(context.Background(), Event{Type: SessionDeleted, DealID: "deal-1"})
	require.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "session.deleted")
}

func TestNoopPublisher(t *testing.T) {
	t.Parallel()

	var publisher Publisher = NoopPublisher{}
	assert.NoError(t, publisher.Publish(context.Background(), Event{Type: SessionUpdated}))
	assert.NoError(t, publisher.Close())
}
