package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublishConsumeRoundTrip(t *testing.T) {
	b := NewMessageBus()
	ok := b.PublishInbound(InboundMessage{Channel: "telegram", Content: "hi"})
	assert.True(t, ok)

	msg, ok := b.ConsumeInbound(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "hi", msg.Content)
}

func TestConsume_ContextCancelled(t *testing.T) {
	b := NewMessageBus()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ok := b.ConsumeInbound(ctx)
	assert.False(t, ok)
}

func TestPublish_FullQueueDoesNotBlock(t *testing.T) {
	b := NewMessageBus()
	for i := 0; i < defaultQueueSize; i++ {
		assert.True(t, b.PublishOutbound(OutboundMessage{Content: "x"}))
	}
	assert.False(t, b.PublishOutbound(OutboundMessage{Content: "overflow"}))
}
