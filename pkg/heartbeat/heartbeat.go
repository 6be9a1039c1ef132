// myclaw - personal AI assistant runtime
// License: MIT

// Package heartbeat runs periodic background turns so the agent can act on
// its own schedule: check reminders, follow up on tasks, surface anything in
// HEARTBEAT.md that needs attention.
package heartbeat

import (
	"context"
	"strings"
	"time"

	"github.com/adhocore/gronx"

	"github.com/myclaw/myclaw/pkg/agent"
	"github.com/myclaw/myclaw/pkg/logger"
	"github.com/myclaw/myclaw/pkg/session"
)

// HeartbeatPrompt is what a heartbeat turn asks the agent to do. The
// workspace HEARTBEAT.md bootstrap file carries the user's standing
// instructions for these turns.
const HeartbeatPrompt = "Read HEARTBEAT.md if present and act on it. " +
	"If there is nothing that needs attention, reply with exactly HEARTBEAT_OK."

// OKToken in a reply marks a heartbeat with nothing to deliver.
const OKToken = "HEARTBEAT_OK"

// Service fires agent turns on a cron schedule.
type Service struct {
	runner   *agent.Runner
	cfg      agent.RunConfig
	cronExpr string
	gron     *gronx.Gronx
	deliver  func(reply string) // optional, receives non-OK replies
}

func NewService(runner *agent.Runner, cfg agent.RunConfig, cronExpr string) *Service {
	return &Service{
		runner:   runner,
		cfg:      cfg,
		cronExpr: cronExpr,
		gron:     gronx.New(),
	}
}

// SetDeliver registers the callback for heartbeat replies that carry actual
// content.
func (s *Service) SetDeliver(fn func(reply string)) { s.deliver = fn }

// SessionKey returns the dedicated heartbeat session key.
func SessionKey() string {
	return session.BuildKey(session.KeyParams{
		Agent:   "main",
		Channel: "heartbeat",
		Account: "default",
		Peer:    session.PeerDirect,
		PeerID:  "heartbeat",
	})
}

// Valid reports whether the configured cron expression parses.
func (s *Service) Valid() bool {
	return s.gron.IsValid(s.cronExpr)
}

// Run ticks once a minute and fires a turn whenever the cron expression is
// due. It returns when the context ends.
func (s *Service) Run(ctx context.Context) error {
	if !s.Valid() {
		logger.ErrorCF("heartbeat", "invalid cron expression, heartbeat disabled", map[string]interface{}{
			"cron": s.cronExpr,
		})
		return nil
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	logger.InfoCF("heartbeat", "heartbeat scheduled", map[string]interface{}{
		"cron": s.cronExpr,
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			due, err := s.gron.IsDue(s.cronExpr, now)
			if err != nil || !due {
				continue
			}
			s.fire(ctx)
		}
	}
}

func (s *Service) fire(ctx context.Context) {
	result, err := s.runner.Run(ctx, agent.RunInput{
		SessionKey: SessionKey(),
		UserText:   HeartbeatPrompt,
		Config:     s.cfg,
	})
	if err != nil {
		logger.WarnCF("heartbeat", "heartbeat turn failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	reply := strings.TrimSpace(result.Reply)
	if IsOK(reply) {
		logger.DebugCF("heartbeat", "heartbeat ok, nothing to deliver", nil)
		return
	}
	logger.InfoCF("heartbeat", "heartbeat produced output", map[string]interface{}{
		"chars": len(reply),
	})
	if s.deliver != nil {
		s.deliver(reply)
	}
}

// IsOK reports whether a reply is just the OK token (possibly decorated with
// stray punctuation or whitespace).
func IsOK(reply string) bool {
	cleaned := strings.TrimSpace(strings.Trim(strings.TrimSpace(reply), ".!"))
	return cleaned == OKToken
}
