// myclaw - personal AI assistant runtime
// License: MIT

package channels

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/myclaw/myclaw/pkg/bus"
	"github.com/myclaw/myclaw/pkg/config"
	"github.com/myclaw/myclaw/pkg/logger"
	"github.com/myclaw/myclaw/pkg/session"
)

// DiscordChannel bridges a Discord bot session onto the message bus.
type DiscordChannel struct {
	cfg     config.DiscordConfig
	bus     *bus.MessageBus
	discord *discordgo.Session
}

func NewDiscordChannel(cfg config.DiscordConfig, msgBus *bus.MessageBus) *DiscordChannel {
	return &DiscordChannel{cfg: cfg, bus: msgBus}
}

func (c *DiscordChannel) Name() string { return "discord" }

func (c *DiscordChannel) Start(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + c.cfg.Token)
	if err != nil {
		return fmt.Errorf("creating discord session: %w", err)
	}
	c.discord = dg
	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

	dg.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.ID == s.State.User.ID || m.Content == "" {
			return
		}
		if !senderAllowed(c.cfg.AllowFrom, m.Author.ID) {
			return
		}

		peerKind := session.PeerChannel
		if m.GuildID == "" {
			peerKind = session.PeerDirect
		}

		c.bus.PublishInbound(bus.InboundMessage{
			Channel:  c.Name(),
			SenderID: m.Author.ID,
			ChatID:   m.ChannelID,
			Content:  m.Content,
			SessionKey: session.BuildKey(session.KeyParams{
				Agent:   "main",
				Channel: c.Name(),
				Account: "default",
				Peer:    peerKind,
				PeerID:  m.ChannelID,
			}),
		})
	})

	if err := dg.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	logger.InfoCF("channels", "discord channel started", nil)

	<-ctx.Done()
	return nil
}

func (c *DiscordChannel) Send(chatID, content string) error {
	if c.discord == nil {
		return fmt.Errorf("discord channel not started")
	}
	_, err := c.discord.ChannelMessageSend(chatID, content)
	return err
}

func (c *DiscordChannel) Stop() {
	if c.discord != nil {
		_ = c.discord.Close()
	}
}
