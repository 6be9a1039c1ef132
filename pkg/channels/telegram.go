// myclaw - personal AI assistant runtime
// License: MIT

package channels

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mymmrac/telego"

	"github.com/myclaw/myclaw/pkg/bus"
	"github.com/myclaw/myclaw/pkg/config"
	"github.com/myclaw/myclaw/pkg/logger"
	"github.com/myclaw/myclaw/pkg/session"
)

// TelegramChannel bridges Telegram long polling onto the message bus.
type TelegramChannel struct {
	cfg config.TelegramConfig
	bus *bus.MessageBus
	bot *telego.Bot
}

func NewTelegramChannel(cfg config.TelegramConfig, msgBus *bus.MessageBus) *TelegramChannel {
	return &TelegramChannel{cfg: cfg, bus: msgBus}
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Start(ctx context.Context) error {
	bot, err := telego.NewBot(c.cfg.Token)
	if err != nil {
		return fmt.Errorf("creating telegram bot: %w", err)
	}
	c.bot = bot

	updates, err := bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting telegram polling: %w", err)
	}

	logger.InfoCF("channels", "telegram channel started", nil)
	for update := range updates {
		if update.Message == nil || update.Message.Text == "" {
			continue
		}
		msg := update.Message

		senderID := ""
		if msg.From != nil {
			senderID = strconv.FormatInt(msg.From.ID, 10)
		}
		if !senderAllowed(c.cfg.AllowFrom, senderID) {
			logger.DebugCF("channels", "telegram sender not in allow list", map[string]interface{}{
				"sender_id": senderID,
			})
			continue
		}

		peerKind := session.PeerDirect
		if msg.Chat.Type == "group" || msg.Chat.Type == "supergroup" {
			peerKind = session.PeerGroup
		} else if msg.Chat.Type == "channel" {
			peerKind = session.PeerChannel
		}

		chatID := strconv.FormatInt(msg.Chat.ID, 10)
		c.bus.PublishInbound(bus.InboundMessage{
			Channel:  c.Name(),
			SenderID: senderID,
			ChatID:   chatID,
			Content:  msg.Text,
			SessionKey: session.BuildKey(session.KeyParams{
				Agent:   "main",
				Channel: c.Name(),
				Account: "default",
				Peer:    peerKind,
				PeerID:  chatID,
			}),
		})
	}
	return nil
}

func (c *TelegramChannel) Send(chatID, content string) error {
	if c.bot == nil {
		return fmt.Errorf("telegram channel not started")
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad telegram chat id %q: %w", chatID, err)
	}
	_, err = c.bot.SendMessage(context.Background(), &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: id},
		Text:   content,
	})
	return err
}

func (c *TelegramChannel) Stop() {}
