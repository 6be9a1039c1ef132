package channels

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myclaw/myclaw/pkg/bus"
)

type fakeChannel struct {
	name string
	mu   sync.Mutex
	sent []string
}

func (f *fakeChannel) Name() string { return f.name }
func (f *fakeChannel) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
func (f *fakeChannel) Send(chatID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, chatID+":"+content)
	return nil
}
func (f *fakeChannel) Stop() {}

func (f *fakeChannel) sentCopy() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func TestManager_RoutesOutboundByChannel(t *testing.T) {
	msgBus := bus.NewMessageBus()
	m := NewManager(msgBus)
	tg := &fakeChannel{name: "telegram"}
	dc := &fakeChannel{name: "discord"}
	m.Register(tg)
	m.Register(dc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	msgBus.PublishOutbound(bus.OutboundMessage{Channel: "telegram", ChatID: "42", Content: "hi"})
	msgBus.PublishOutbound(bus.OutboundMessage{Channel: "discord", ChatID: "C1", Content: "yo"})
	msgBus.PublishOutbound(bus.OutboundMessage{Channel: "nope", ChatID: "x", Content: "dropped"})

	require.Eventually(t, func() bool {
		return len(tg.sentCopy()) == 1 && len(dc.sentCopy()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, []string{"42:hi"}, tg.sentCopy())
	assert.Equal(t, []string{"C1:yo"}, dc.sentCopy())
}

func TestSenderAllowed(t *testing.T) {
	assert.True(t, senderAllowed(nil, "anyone"))
	assert.True(t, senderAllowed([]string{"a", "b"}, "b"))
	assert.False(t, senderAllowed([]string{"a"}, "z"))
}
