// myclaw - personal AI assistant runtime
// License: MIT

// Package channels adapts chat platforms onto the message bus. Each adapter
// turns platform messages into inbound bus messages keyed by canonical
// session keys, and delivers outbound replies.
package channels

import (
	"context"
	"sync"

	"github.com/myclaw/myclaw/pkg/bus"
	"github.com/myclaw/myclaw/pkg/logger"
)

// Channel is one platform adapter.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Send(chatID, content string) error
	Stop()
}

// Manager owns the enabled channel adapters and routes outbound bus traffic
// to the right one.
type Manager struct {
	bus      *bus.MessageBus
	channels map[string]Channel
	mu       sync.Mutex
}

func NewManager(msgBus *bus.MessageBus) *Manager {
	return &Manager{bus: msgBus, channels: map[string]Channel{}}
}

// Register adds an adapter under its name.
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

// Names lists registered channel names.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	return names
}

// Get returns the adapter registered under name.
func (m *Manager) Get(name string) (Channel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// Run starts every adapter and pumps outbound messages to them until the
// context ends. Adapter start failures disable that adapter but do not stop
// the others.
func (m *Manager) Run(ctx context.Context) {
	m.mu.Lock()
	channels := make([]Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		channels = append(channels, ch)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			if err := ch.Start(ctx); err != nil {
				logger.ErrorCF("channels", "channel failed to start", map[string]interface{}{
					"channel": ch.Name(),
					"error":   err.Error(),
				})
			}
		}(ch)
	}

	for {
		msg, ok := m.bus.ConsumeOutbound(ctx)
		if !ok {
			break
		}
		ch, found := m.Get(msg.Channel)
		if !found {
			logger.WarnCF("channels", "outbound message for unknown channel", map[string]interface{}{
				"channel": msg.Channel,
			})
			continue
		}
		if err := ch.Send(msg.ChatID, msg.Content); err != nil {
			logger.WarnCF("channels", "send failed", map[string]interface{}{
				"channel": msg.Channel,
				"chat_id": msg.ChatID,
				"error":   err.Error(),
			})
		}
	}

	for _, ch := range channels {
		ch.Stop()
	}
	wg.Wait()
}

// senderAllowed applies a channel allow-list. An empty list allows everyone.
func senderAllowed(allowFrom []string, senderID string) bool {
	if len(allowFrom) == 0 {
		return true
	}
	for _, allowed := range allowFrom {
		if allowed == senderID {
			return true
		}
	}
	return false
}
