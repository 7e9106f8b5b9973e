package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"learnhub_backend/internal/config"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWatermillPublisherDeliversOverChannel(t *testing.T) {
	pubsub := NewChannelPubSub(zap.NewNop())
	defer pubsub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubsub.Subscribe(ctx, "learnhub.test")
	require.NoError(t, err)

	pub := NewWatermillPublisher(pubsub, "learnhub.test", zap.NewNop())
	event := New(EventProgressUpdated, ProgressUpdated{UserID: "u1", LessonID: "l1", Status: "completed"})
	require.NoError(t, pub.Publish(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, string(EventProgressUpdated), msg.Metadata.Get("event_type"))
		assert.Equal(t, source, msg.Metadata.Get("source"))

		var got struct {
			Type EventType       `json:"type"`
			Data ProgressUpdated `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, EventProgressUpdated, got.Type)
		assert.Equal(t, "completed", got.Data.Status)
	case <-ctx.Done():
		t.Fatal("event not delivered")
	}
}

func TestNewPublisherDisabledUsesMemory(t *testing.T) {
	pub, err := NewPublisher(config.EventsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	mem, ok := pub.(*MemoryPublisher)
	require.True(t, ok)

	require.NoError(t, mem.Publish(context.Background(), New(EventSubmissionCreated, SubmissionCreated{SubmissionID: "s1"})))
	events := mem.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventSubmissionCreated, events[0].Type)
	assert.NotEmpty(t, events[0].ID)
}

func TestNewPublisherChannel(t *testing.T) {
	pub, err := NewPublisher(config.EventsConfig{Enabled: true, Publisher: "channel", Topic: "t"}, zap.NewNop())
	require.NoError(t, err)
	defer pub.Close()

	_, ok := pub.(*WatermillPublisher)
	assert.True(t, ok)
}

func TestZapAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	adapter := NewZapAdapter(zap.New(core)).With(watermill.LogFields{"topic": "t"})

	adapter.Info("published", watermill.LogFields{"n": 1})
	adapter.Trace("trace", nil)
	adapter.Error("failed", assert.AnError, nil)

	require.Equal(t, 3, logs.Len())
	entries := logs.All()
	assert.Equal(t, "t", entries[0].ContextMap()["topic"])
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, assert.AnError.Error(), entries[2].ContextMap()["error"])
}
