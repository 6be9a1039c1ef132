// myclaw - personal AI assistant runtime
// License: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"

	"github.com/myclaw/myclaw/pkg/agent"
	"github.com/myclaw/myclaw/pkg/bus"
	"github.com/myclaw/myclaw/pkg/channels"
	"github.com/myclaw/myclaw/pkg/config"
	"github.com/myclaw/myclaw/pkg/heartbeat"
	"github.com/myclaw/myclaw/pkg/logger"
	"github.com/myclaw/myclaw/pkg/providers"
	"github.com/myclaw/myclaw/pkg/session"
	"github.com/myclaw/myclaw/pkg/state"
)

const version = "0.3.0"

func main() {
	cmd := "agent"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	root := state.Root()
	if err := state.EnsureLayout(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to prepare state dir %s: %v\n", root, err)
		os.Exit(1)
	}

	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(nil, cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "agent":
		err = runREPL(ctx, cfg, root)
	case "gateway":
		err = runGateway(ctx, cfg, root)
	case "status":
		err = runStatus(root)
	case "version":
		fmt.Println("myclaw " + version)
	default:
		fmt.Fprintf(os.Stderr, "usage: myclaw [agent|gateway|status|version]\n")
		os.Exit(2)
	}
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRunner(root string) *agent.Runner {
	return agent.NewRunner(state.SessionsDir(root))
}

func cliSessionKey() string {
	return session.BuildKey(session.KeyParams{
		Agent:   "main",
		Channel: "cli",
		Account: "default",
		Peer:    session.PeerDirect,
		PeerID:  "local",
	})
}

// runREPL is the interactive terminal loop.
func runREPL(ctx context.Context, cfg *config.Config, root string) error {
	runner := newRunner(root)
	runCfg := agent.RunConfigFromDefaults(cfg)
	key := cliSessionKey()

	rl, err := readline.New("myclaw> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Printf("myclaw %s — model %s. /quit to exit.\n", version, runCfg.Model)

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			return nil
		}
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if text == "/quit" || text == "/exit" {
			return nil
		}
		if text == "/new" {
			if _, err := runner.Store().Delete(key); err != nil {
				fmt.Printf("could not reset session: %v\n", err)
			} else {
				fmt.Println("session reset")
			}
			continue
		}

		printed := false
		result, err := runner.Run(ctx, agent.RunInput{
			SessionKey: key,
			UserText:   text,
			Config:     runCfg,
			OnEvent: func(ev agent.Event) {
				if ev.Type == agent.EventLLMStream && ev.Stream != nil &&
					ev.Stream.Type == providers.StreamTextDelta {
					fmt.Print(ev.Stream.Text)
					printed = true
				}
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Printf("error: %v\n", err)
			continue
		}
		if printed {
			fmt.Println()
		} else {
			fmt.Println(result.Reply)
		}
	}
}

// runGateway starts the channel adapters, the heartbeat, and the agent
// worker that turns inbound bus messages into runs.
func runGateway(ctx context.Context, cfg *config.Config, root string) error {
	runner := newRunner(root)
	runCfg := agent.RunConfigFromDefaults(cfg)
	msgBus := bus.NewMessageBus()

	manager := channels.NewManager(msgBus)
	if cfg.Channels.Telegram.Enabled {
		manager.Register(channels.NewTelegramChannel(cfg.Channels.Telegram, msgBus))
	}
	if cfg.Channels.Discord.Enabled {
		manager.Register(channels.NewDiscordChannel(cfg.Channels.Discord, msgBus))
	}
	if cfg.Channels.Slack.Enabled {
		manager.Register(channels.NewSlackChannel(cfg.Channels.Slack, msgBus))
	}
	if cfg.Channels.WebSocket.Enabled {
		manager.Register(channels.NewWebSocketChannel(cfg.Channels.WebSocket, msgBus))
	}
	if len(manager.Names()) == 0 {
		return fmt.Errorf("no channels enabled; enable at least one in %s", config.ConfigPath())
	}

	// Agent worker: one turn at a time, in arrival order.
	go func() {
		for {
			msg, ok := msgBus.ConsumeInbound(ctx)
			if !ok {
				return
			}
			result, err := runner.Run(ctx, agent.RunInput{
				SessionKey: msg.SessionKey,
				UserText:   msg.Content,
				Config:     runCfg,
			})
			reply := ""
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				reply = fmt.Sprintf("Error processing message: %v", err)
			} else {
				reply = result.Reply
				lastChannel, lastTo := msg.Channel, msg.ChatID
				_, _ = runner.Index().UpsertMeta(msg.SessionKey, session.EntryPatch{
					LastChannel: &lastChannel,
					LastTo:      &lastTo,
				})
			}
			if reply != "" {
				msgBus.PublishOutbound(bus.OutboundMessage{
					Channel: msg.Channel,
					ChatID:  msg.ChatID,
					Content: reply,
				})
			}
		}
	}()

	if cfg.Heartbeat.Enabled {
		hb := heartbeat.NewService(runner, runCfg, cfg.Heartbeat.Cron)
		hb.SetDeliver(func(reply string) {
			// deliver to the most recently updated session's last known channel
			entries, err := runner.Index().Load()
			if err != nil {
				return
			}
			var target *session.SessionEntry
			for _, entry := range entries {
				if entry.LastChannel != "" && entry.LastTo != "" &&
					(target == nil || entry.UpdatedAt > target.UpdatedAt) {
					e := entry
					target = &e
				}
			}
			if target != nil {
				msgBus.PublishOutbound(bus.OutboundMessage{
					Channel: target.LastChannel,
					ChatID:  target.LastTo,
					Content: reply,
				})
			}
		})
		go func() { _ = hb.Run(ctx) }()
	}

	logger.InfoCF("gateway", "gateway running", map[string]interface{}{
		"channels":  manager.Names(),
		"heartbeat": cfg.Heartbeat.Enabled,
	})
	manager.Run(ctx)
	return nil
}

func runStatus(root string) error {
	index := session.NewIndex(state.SessionsDir(root))
	entries, err := index.Load()
	if err != nil {
		return err
	}
	fmt.Printf("state root: %s\n", root)
	fmt.Printf("sessions:   %d\n", len(entries))
	for key, entry := range entries {
		fmt.Printf("  %s\n    file=%s model=%s tokens=%d\n",
			key, filepath.Join("sessions", entry.SessionFile), entry.Model, entry.TotalTokens)
	}
	return nil
}
