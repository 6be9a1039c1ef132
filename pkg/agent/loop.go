// myclaw - personal AI assistant runtime
// License: MIT

package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/myclaw/myclaw/pkg/auth"
	"github.com/myclaw/myclaw/pkg/config"
	"github.com/myclaw/myclaw/pkg/logger"
	"github.com/myclaw/myclaw/pkg/providers"
	"github.com/myclaw/myclaw/pkg/session"
	"github.com/myclaw/myclaw/pkg/state"
	"github.com/myclaw/myclaw/pkg/tools"
)

var (
	// ErrRetriesExhausted reports that the retry budget ran out across
	// credential profiles, including the case where every profile entered
	// cooldown with no budget left.
	ErrRetriesExhausted = errors.New("provider retries exhausted")

	// ErrOverflow reports a context overflow that survived both recovery
	// stages.
	ErrOverflow = errors.New("context overflow could not be recovered")
)

// RunConfig is the per-run configuration snapshot.
type RunConfig struct {
	Provider  string
	Model     string
	BaseURL   string
	Profiles  []config.Profile
	Workspace string

	MaxTokens                 int
	MaxIterations             int
	MaxRetries                int
	ToolResultMaxChars        int
	CompactToolResultMaxChars int
	CompactKeepRecent         int
}

// RunConfigFromDefaults maps the loaded configuration onto a run snapshot.
func RunConfigFromDefaults(cfg *config.Config) RunConfig {
	d := cfg.Agents.Defaults
	return RunConfig{
		Provider:                  d.Provider,
		Model:                     d.Model,
		BaseURL:                   d.BaseURL,
		Profiles:                  cfg.Providers.Profiles,
		Workspace:                 cfg.WorkspacePath(),
		MaxTokens:                 d.MaxTokens,
		MaxIterations:             d.MaxIterations,
		MaxRetries:                d.MaxRetries,
		ToolResultMaxChars:        d.ToolResultMaxChars,
		CompactToolResultMaxChars: d.CompactToolResultMaxChars,
		CompactKeepRecent:         d.CompactKeepRecent,
	}
}

func (c *RunConfig) applyDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 25
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.ToolResultMaxChars <= 0 {
		c.ToolResultMaxChars = 50000
	}
	if c.CompactToolResultMaxChars <= 0 {
		c.CompactToolResultMaxChars = 20000
	}
	if c.CompactKeepRecent <= 0 {
		c.CompactKeepRecent = 10
	}
}

// RunInput is one turn's input.
type RunInput struct {
	SessionKey string
	UserText   string
	Config     RunConfig
	OnEvent    func(Event)
}

// RunResult is one turn's outcome.
type RunResult struct {
	Reply                string
	Usage                providers.Usage
	LastCallUsage        providers.Usage
	Iterations           int
	MaxIterationsReached bool
}

// ToolFactory builds the tool set bound to a workspace.
type ToolFactory func(workspace string) *tools.Registry

// DefaultToolset registers the built-in workspace tools.
func DefaultToolset(workspace string) *tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(tools.NewReadFileTool(workspace))
	reg.Register(tools.NewWriteFileTool(workspace))
	reg.Register(tools.NewEditFileTool(workspace))
	reg.Register(tools.NewAppendFileTool(workspace))
	reg.Register(tools.NewListDirTool(workspace))
	reg.Register(tools.NewExecTool(workspace))
	reg.Register(tools.NewApplyPatchTool(workspace))
	return reg
}

// Runner drives conversation turns against the stores under one sessions
// directory. One turn per session key at a time is assumed by the caller.
type Runner struct {
	store       *session.TranscriptStore
	index       *session.Index
	registry    *providers.Registry
	toolFactory ToolFactory
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewRunner(sessionsDir string) *Runner {
	return &Runner{
		store:       session.NewTranscriptStore(sessionsDir),
		index:       session.NewIndex(sessionsDir),
		registry:    providers.NewRegistry(),
		toolFactory: DefaultToolset,
		sleep:       sleepCtx,
	}
}

// SetProviderRegistry replaces the provider registry (tests, embedders).
func (r *Runner) SetProviderRegistry(reg *providers.Registry) { r.registry = reg }

// SetToolFactory replaces the tool set builder.
func (r *Runner) SetToolFactory(f ToolFactory) { r.toolFactory = f }

// Store exposes the transcript store for callers that list or delete
// sessions.
func (r *Runner) Store() *session.TranscriptStore { return r.store }

// Index exposes the metadata index.
func (r *Runner) Index() *session.Index { return r.index }

// resolveProfiles materialises API keys for the run. A profile configured
// without a key is backed by the stored OAuth credential matching its ID;
// profiles with neither are dropped so selection never picks an
// unauthenticatable credential. The input slice is not mutated.
func resolveProfiles(profiles []config.Profile) []config.Profile {
	out := make([]config.Profile, 0, len(profiles))
	for _, p := range profiles {
		if p.APIKey != "" {
			out = append(out, p)
			continue
		}
		cred, err := auth.GetCredential(p.ID)
		if err != nil || cred == nil {
			logger.WarnCF("agent", "profile has no api key and no stored credential", map[string]interface{}{
				"profile": p.ID,
			})
			continue
		}
		if cred.Expired() {
			logger.WarnCF("agent", "stored credential expired", map[string]interface{}{
				"profile": p.ID,
			})
			continue
		}
		p.APIKey = cred.AccessToken
		out = append(out, p)
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run executes one conversation turn: load and repair the transcript, append
// the user message, iterate provider calls and tool invocations, then persist
// the new tail and update the index. On cancellation and terminal errors
// nothing is persisted; the transcript keeps reflecting the last completed
// turn.
func (r *Runner) Run(ctx context.Context, input RunInput) (*RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := input.Config
	cfg.applyDefaults()

	emit := func(ev Event) {
		if input.OnEvent != nil {
			input.OnEvent(ev)
		}
	}

	// Setup
	if err := state.ScaffoldWorkspace(cfg.Workspace); err != nil {
		return nil, fmt.Errorf("preparing workspace: %w", err)
	}
	toolReg := r.toolFactory(cfg.Workspace)
	systemPrompt := ComposeSystemPrompt(PromptSpec{
		Bootstrap:  BootstrapLoader{}.Load(cfg.Workspace),
		ToolNames:  toolReg.Names(),
		Model:      cfg.Model,
		WorkingDir: cfg.Workspace,
	})
	desc, provider := r.registry.Resolve(cfg.Provider, cfg.Model, cfg.BaseURL)

	records, err := r.store.Load(input.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("loading transcript: %w", err)
	}
	messages := RepairOrphanedToolCalls(TranscriptToMessages(records))

	messages = append(messages, &providers.UserMessage{
		Content:   []providers.ContentBlock{providers.TextBlock(input.UserText)},
		Timestamp: time.Now().UnixMilli(),
	})
	historyBase := len(messages)

	if len(cfg.Profiles) == 0 {
		return nil, errors.New("no credential profiles configured")
	}
	profiles := resolveProfiles(cfg.Profiles)
	if len(profiles) == 0 {
		return nil, errors.New("no usable credential profiles: every profile lacks both an api key and a stored credential")
	}
	states := providers.NewProfileStates(profiles)
	profileIdx := 0
	guard := OverflowGuard{
		KeepRecent:         cfg.CompactKeepRecent,
		ToolResultMaxChars: cfg.CompactToolResultMaxChars,
	}

	var totalUsage, lastCallUsage providers.Usage

	logger.InfoCF("agent", "turn started", map[string]interface{}{
		"session_key": input.SessionKey,
		"provider":    desc.Provider,
		"model":       desc.Model,
		"history":     historyBase - 1,
	})

	for iteration := 0; iteration < cfg.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		assistant, err := r.invokeProvider(ctx, provider, desc, &cfg, input, emit,
			iteration, systemPrompt, &messages, &historyBase, toolReg, states, &profileIdx,
			guard, &totalUsage, &lastCallUsage)
		if err != nil {
			return nil, err
		}

		messages = append(messages, assistant)

		calls := assistant.ToolCalls()
		if len(calls) == 0 {
			result := &RunResult{
				Reply:         assistant.TextContent(),
				Usage:         totalUsage,
				LastCallUsage: lastCallUsage,
				Iterations:    iteration + 1,
			}
			if err := r.persistTurn(input.SessionKey, messages, historyBase, cfg.Model, totalUsage); err != nil {
				return nil, err
			}
			emit(Event{Type: EventDone, Result: result})
			logger.InfoCF("agent", "turn finished", map[string]interface{}{
				"session_key":  input.SessionKey,
				"iterations":   result.Iterations,
				"total_tokens": totalUsage.TotalTokens,
			})
			return result, nil
		}

		for _, call := range calls {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			emit(Event{Type: EventToolStart, ToolName: call.Name, ToolCallID: call.ID})
			start := time.Now()
			result := toolReg.Invoke(ctx, call, cfg.ToolResultMaxChars)
			emit(Event{
				Type:       EventToolEnd,
				ToolName:   call.Name,
				ToolCallID: call.ID,
				DurationMs: time.Since(start).Milliseconds(),
				IsError:    result.IsError,
			})
			messages = append(messages, result)
		}
	}

	// Iteration budget exhausted: persist what happened and hand back the
	// last assistant text.
	reply := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if a, ok := messages[i].(*providers.AssistantMessage); ok {
			reply = a.TextContent()
			break
		}
	}
	result := &RunResult{
		Reply:                reply,
		Usage:                totalUsage,
		LastCallUsage:        lastCallUsage,
		Iterations:           cfg.MaxIterations,
		MaxIterationsReached: true,
	}
	if err := r.persistTurn(input.SessionKey, messages, historyBase, cfg.Model, totalUsage); err != nil {
		return nil, err
	}
	emit(Event{Type: EventDone, Result: result})
	logger.WarnCF("agent", "max iterations reached", map[string]interface{}{
		"session_key": input.SessionKey,
		"iterations":  cfg.MaxIterations,
	})
	return result, nil
}

// invokeProvider performs one iteration's provider call with credential
// rotation and overflow recovery. Overflow recovery may rewrite the message
// list (and shift historyBase), which is why both are passed by pointer.
func (r *Runner) invokeProvider(
	ctx context.Context,
	provider providers.Provider,
	desc providers.ModelDescriptor,
	cfg *RunConfig,
	input RunInput,
	emit func(Event),
	iteration int,
	systemPrompt string,
	messages *[]providers.Message,
	historyBase *int,
	toolReg *tools.Registry,
	states []*providers.ProfileState,
	profileIdx *int,
	guard OverflowGuard,
	totalUsage *providers.Usage,
	lastCallUsage *providers.Usage,
) (*providers.AssistantMessage, error) {
	retriesUsed := 0
	compacted := false
	truncated := false

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		idx, ok := providers.NextAvailable(states, *profileIdx, time.Now())
		if !ok {
			if retriesUsed >= cfg.MaxRetries {
				return nil, fmt.Errorf("%w: all credential profiles cooling down", ErrRetriesExhausted)
			}
			wait := providers.ShortestCooldown(states, time.Now())
			logger.InfoCF("agent", "all profiles cooling down", map[string]interface{}{
				"wait_ms": wait.Milliseconds(),
			})
			if err := r.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}
		*profileIdx = idx
		profile := states[idx]

		chat := providers.ChatContext{
			SystemPrompt: systemPrompt,
			Messages:     *messages,
			Tools:        toolReg.Definitions(),
		}
		opts := providers.CallOptions{APIKey: profile.Profile.APIKey, MaxTokens: cfg.MaxTokens}

		emit(Event{Type: EventLLMStart, Iteration: iteration})

		var msg *providers.AssistantMessage
		var callErr error
		if input.OnEvent != nil {
			opts.OnEvent = func(ev providers.StreamEvent) {
				emit(Event{Type: EventLLMStream, Stream: &ev})
			}
			msg, callErr = provider.Stream(ctx, desc, chat, opts)
		} else {
			msg, callErr = provider.Complete(ctx, desc, chat, opts)
		}

		if callErr == nil {
			totalUsage.Accumulate(msg.Usage)
			*lastCallUsage = msg.Usage
			profile.MarkGood()
			emit(Event{Type: EventLLMEnd, Message: msg})
			return msg, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		category := providers.ClassifyError(callErr)
		logger.WarnCF("agent", "provider call failed", map[string]interface{}{
			"iteration": iteration,
			"category":  string(category),
			"profile":   profile.Profile.ID,
			"error":     callErr.Error(),
		})

		switch {
		case category == providers.CategoryContextOverflow:
			if !compacted {
				compacted = true
				summarize := r.summarizer(provider, desc, profile.Profile.APIKey, cfg.MaxTokens)
				newMsgs, changed, cErr := guard.Compact(ctx, *messages, summarize)
				if cErr != nil {
					logger.WarnCF("agent", "compaction failed", map[string]interface{}{
						"error": cErr.Error(),
					})
				} else if changed {
					emit(Event{Type: EventCompaction, OldCount: len(*messages), NewCount: len(newMsgs)})
					*historyBase = len(newMsgs) - (len(*messages) - *historyBase)
					if *historyBase < 1 {
						*historyBase = 1
					}
					*messages = newMsgs
					continue
				}
			}
			if !truncated {
				truncated = true
				newMsgs, changed := guard.TruncateToolResults(*messages)
				if changed {
					emit(Event{Type: EventCompaction, OldCount: len(*messages), NewCount: len(newMsgs)})
					*messages = newMsgs
					continue
				}
			}
			return nil, fmt.Errorf("%w: %v", ErrOverflow, callErr)

		case category.Retriable():
			profile.MarkFailed(time.Now())
			*profileIdx = providers.NextIndex(idx, len(states))
			retriesUsed++
			emit(Event{
				Type:      EventRetry,
				Attempt:   retriesUsed,
				Reason:    string(category),
				ProfileID: states[*profileIdx].Profile.ID,
			})
			if retriesUsed > cfg.MaxRetries {
				return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, retriesUsed, callErr)
			}
			continue

		default:
			return nil, callErr
		}
	}
}

// summarizer builds the compaction closure over the active provider call
// path. Injecting it breaks the dependency cycle between conversion,
// compaction, and the loop.
func (r *Runner) summarizer(provider providers.Provider, desc providers.ModelDescriptor, apiKey string, maxTokens int) Summarizer {
	return func(ctx context.Context, prompt string) (string, error) {
		resp, err := provider.Complete(ctx, desc, providers.ChatContext{
			Messages: []providers.Message{
				&providers.UserMessage{
					Content:   []providers.ContentBlock{providers.TextBlock(prompt)},
					Timestamp: time.Now().UnixMilli(),
				},
			},
		}, providers.CallOptions{APIKey: apiKey, MaxTokens: maxTokens})
		if err != nil {
			return "", err
		}
		return resp.TextContent(), nil
	}
}

// persistTurn appends the turn's new tail (the user message plus everything
// produced since) and refreshes the session's index entry.
func (r *Runner) persistTurn(key string, messages []providers.Message, historyBase int, model string, usage providers.Usage) error {
	if historyBase < 1 {
		historyBase = 1
	}
	tail := messages[historyBase-1:]
	if err := r.store.AppendBatch(key, MessagesToTranscript(tail)); err != nil {
		return fmt.Errorf("persisting transcript: %w", err)
	}
	total := usage.TotalTokens
	if _, err := r.index.UpsertMeta(key, session.EntryPatch{
		Model:       &model,
		TotalTokens: &total,
	}); err != nil {
		return fmt.Errorf("updating session index: %w", err)
	}
	return nil
}
