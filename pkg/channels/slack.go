// myclaw - personal AI assistant runtime
// License: MIT

package channels

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/myclaw/myclaw/pkg/bus"
	"github.com/myclaw/myclaw/pkg/config"
	"github.com/myclaw/myclaw/pkg/logger"
	"github.com/myclaw/myclaw/pkg/session"
)

// SlackChannel bridges Slack Socket Mode onto the message bus.
type SlackChannel struct {
	cfg    config.SlackConfig
	bus    *bus.MessageBus
	api    *slack.Client
	socket *socketmode.Client
}

func NewSlackChannel(cfg config.SlackConfig, msgBus *bus.MessageBus) *SlackChannel {
	return &SlackChannel{cfg: cfg, bus: msgBus}
}

func (c *SlackChannel) Name() string { return "slack" }

func (c *SlackChannel) Start(ctx context.Context) error {
	c.api = slack.New(c.cfg.BotToken, slack.OptionAppLevelToken(c.cfg.AppToken))
	c.socket = socketmode.New(c.api)

	go func() {
		for evt := range c.socket.Events {
			if evt.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			if evt.Request != nil {
				c.socket.Ack(*evt.Request)
			}

			inner, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent)
			if !ok || inner.BotID != "" || inner.Text == "" {
				continue
			}
			if !senderAllowed(c.cfg.AllowFrom, inner.User) {
				continue
			}

			peerKind := session.PeerChannel
			if strings.HasPrefix(inner.Channel, "D") {
				peerKind = session.PeerDirect
			}

			c.bus.PublishInbound(bus.InboundMessage{
				Channel:  c.Name(),
				SenderID: inner.User,
				ChatID:   inner.Channel,
				Content:  inner.Text,
				SessionKey: session.BuildKey(session.KeyParams{
					Agent:   "main",
					Channel: c.Name(),
					Account: "default",
					Peer:    peerKind,
					PeerID:  inner.Channel,
				}),
			})
		}
	}()

	logger.InfoCF("channels", "slack channel started", nil)
	return c.socket.RunContext(ctx)
}

func (c *SlackChannel) Send(chatID, content string) error {
	if c.api == nil {
		return fmt.Errorf("slack channel not started")
	}
	_, _, err := c.api.PostMessage(chatID, slack.MsgOptionText(content, false))
	return err
}

func (c *SlackChannel) Stop() {}
