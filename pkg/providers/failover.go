// myclaw - personal AI assistant runtime
// License: MIT

package providers

import (
	"errors"
	"strings"
	"time"

	"github.com/myclaw/myclaw/pkg/config"
)

// ErrorCategory is the recovery class a provider failure maps to.
type ErrorCategory string

const (
	CategoryAuth            ErrorCategory = "auth"
	CategoryRateLimit       ErrorCategory = "rate_limit"
	CategoryBilling         ErrorCategory = "billing"
	CategoryTimeout         ErrorCategory = "timeout"
	CategoryQuota           ErrorCategory = "quota"
	CategoryContextOverflow ErrorCategory = "context_overflow"
	CategoryUnknown         ErrorCategory = "unknown"
)

var overflowPatterns = []string{
	"context_length_exceeded",
	"too many tokens",
	"token limit",
	"maximum context",
	"prompt is too long",
	"request too large",
	"max_tokens",
}

var timeoutPatterns = []string{
	"timeout",
	"timed out",
	"etimedout",
	"econnreset",
	"econnaborted",
	"socket hang up",
	"network error",
}

var quotaPatterns = []string{
	"quota",
	"exceeded your current",
	"insufficient_quota",
	"billing hard limit",
}

// ClassifyError maps an opaque provider failure to its recovery category.
// A usable HTTP status wins over message patterns; among message patterns the
// context-overflow set is tested before the timeout set.
func ClassifyError(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode > 0 {
		switch {
		case reqErr.StatusCode == 401 || reqErr.StatusCode == 403:
			return CategoryAuth
		case reqErr.StatusCode == 429:
			return CategoryRateLimit
		case reqErr.StatusCode == 402:
			return CategoryBilling
		case reqErr.StatusCode >= 500:
			return CategoryTimeout
		}
	}

	msg := strings.ToLower(err.Error())
	for _, p := range overflowPatterns {
		if strings.Contains(msg, p) {
			return CategoryContextOverflow
		}
	}
	for _, p := range timeoutPatterns {
		if strings.Contains(msg, p) {
			return CategoryTimeout
		}
	}
	for _, p := range quotaPatterns {
		if strings.Contains(msg, p) {
			return CategoryQuota
		}
	}
	return CategoryUnknown
}

// Retriable reports whether the category should rotate to the next credential
// profile. Context overflow takes the recovery path instead; quota and
// unknown are terminal.
func (c ErrorCategory) Retriable() bool {
	switch c {
	case CategoryAuth, CategoryRateLimit, CategoryBilling, CategoryTimeout:
		return true
	default:
		return false
	}
}

const (
	initialCooldownMs = int64(1000)
	maxCooldownMs     = int64(60000)
)

// ProfileState tracks one credential's cooldown window for the duration of a
// single run.
type ProfileState struct {
	Profile    config.Profile
	Index      int
	CooldownMs int64
	FailedAt   int64 // unix millis of last failure, 0 when healthy
}

// NewProfileStates builds fresh per-run states in configuration order.
func NewProfileStates(profiles []config.Profile) []*ProfileState {
	states := make([]*ProfileState, len(profiles))
	for i, p := range profiles {
		states[i] = &ProfileState{Profile: p, Index: i, CooldownMs: initialCooldownMs}
	}
	return states
}

// CoolingDown reports whether the profile's cooldown window is still open.
func (p *ProfileState) CoolingDown(now time.Time) bool {
	return p.FailedAt != 0 && now.UnixMilli()-p.FailedAt < p.CooldownMs
}

// Available reports whether the profile may be selected.
func (p *ProfileState) Available(now time.Time) bool {
	return !p.CoolingDown(now)
}

// MarkFailed opens the cooldown window, doubling it up to the 60s cap.
func (p *ProfileState) MarkFailed(now time.Time) {
	p.FailedAt = now.UnixMilli()
	p.CooldownMs = min(p.CooldownMs*2, maxCooldownMs)
}

// MarkGood clears the failure and resets the cooldown to its initial value.
func (p *ProfileState) MarkGood() {
	p.FailedAt = 0
	p.CooldownMs = initialCooldownMs
}

// NextIndex rotates a profile index modulo n.
func NextIndex(cur, n int) int {
	if n <= 0 {
		return 0
	}
	return (cur + 1) % n
}

// NextAvailable returns the first available profile index starting the scan
// at start, or ok=false when every profile is cooling down.
func NextAvailable(states []*ProfileState, start int, now time.Time) (int, bool) {
	n := len(states)
	if n == 0 {
		return 0, false
	}
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if states[idx].Available(now) {
			return idx, true
		}
	}
	return 0, false
}

// ShortestCooldown returns the smallest remaining cooldown across profiles,
// the wait before any selection can succeed.
func ShortestCooldown(states []*ProfileState, now time.Time) time.Duration {
	shortest := time.Duration(-1)
	for _, s := range states {
		if !s.CoolingDown(now) {
			return 0
		}
		remaining := time.Duration(s.FailedAt+s.CooldownMs-now.UnixMilli()) * time.Millisecond
		if remaining < 0 {
			remaining = 0
		}
		if shortest < 0 || remaining < shortest {
			shortest = remaining
		}
	}
	if shortest < 0 {
		return 0
	}
	return shortest
}
