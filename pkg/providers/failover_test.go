package providers

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/myclaw/myclaw/pkg/config"
)

func TestClassifyError_StatusCodes(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorCategory
	}{
		{401, CategoryAuth},
		{403, CategoryAuth},
		{429, CategoryRateLimit},
		{402, CategoryBilling},
		{500, CategoryTimeout},
		{503, CategoryTimeout},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := &RequestError{StatusCode: tt.status, Message: "boom"}
			assert.Equal(t, tt.want, ClassifyError(err))
		})
	}
}

func TestClassifyError_StatusWinsOverMessage(t *testing.T) {
	assert.Equal(t, CategoryAuth,
		ClassifyError(&RequestError{StatusCode: 401, Message: "timeout"}))
	assert.Equal(t, CategoryRateLimit,
		ClassifyError(&RequestError{StatusCode: 429, Message: "context_length_exceeded"}))
}

func TestClassifyError_MessagePatterns(t *testing.T) {
	tests := []struct {
		msg  string
		want ErrorCategory
	}{
		{"Context_Length_Exceeded by request", CategoryContextOverflow},
		{"prompt is too long: 210000 tokens", CategoryContextOverflow},
		{"request too large for model", CategoryContextOverflow},
		{"input exceeds max_tokens", CategoryContextOverflow},
		{"dial tcp: i/o timeout", CategoryTimeout},
		{"read: ECONNRESET", CategoryTimeout},
		{"socket hang up", CategoryTimeout},
		{"you have exceeded your current quota", CategoryQuota},
		{"insufficient_quota", CategoryQuota},
		{"something entirely else", CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(errors.New(tt.msg)))
		})
	}
}

func TestClassifyError_OverflowBeforeTimeout(t *testing.T) {
	// "too many tokens ... timed out" must classify as overflow
	err := errors.New("too many tokens in request, connection timed out")
	assert.Equal(t, CategoryContextOverflow, ClassifyError(err))
}

func TestRetriable(t *testing.T) {
	assert.True(t, CategoryAuth.Retriable())
	assert.True(t, CategoryRateLimit.Retriable())
	assert.True(t, CategoryBilling.Retriable())
	assert.True(t, CategoryTimeout.Retriable())
	assert.False(t, CategoryContextOverflow.Retriable())
	assert.False(t, CategoryQuota.Retriable())
	assert.False(t, CategoryUnknown.Retriable())
}

func testProfiles(n int) []config.Profile {
	out := make([]config.Profile, n)
	for i := range out {
		out[i] = config.Profile{ID: fmt.Sprintf("p%d", i), APIKey: fmt.Sprintf("key-%d", i)}
	}
	return out
}

func TestProfileState_CooldownDoubling(t *testing.T) {
	states := NewProfileStates(testProfiles(1))
	p := states[0]
	now := time.Now()

	assert.Equal(t, int64(1000), p.CooldownMs)
	expected := []int64{2000, 4000, 8000, 16000, 32000, 60000, 60000}
	for i, want := range expected {
		p.MarkFailed(now)
		assert.Equal(t, want, p.CooldownMs, "after failure %d", i+1)
	}

	p.MarkGood()
	assert.Equal(t, int64(1000), p.CooldownMs)
	assert.Zero(t, p.FailedAt)
}

func TestProfileState_Availability(t *testing.T) {
	p := NewProfileStates(testProfiles(1))[0]
	now := time.Now()
	assert.True(t, p.Available(now), "never-failed profile is available")

	p.MarkFailed(now)
	assert.False(t, p.Available(now))
	assert.True(t, p.Available(now.Add(2*time.Second)), "available after cooldown elapses")
}

func TestNextIndex(t *testing.T) {
	assert.Equal(t, 1, NextIndex(0, 3))
	assert.Equal(t, 0, NextIndex(2, 3))
	assert.Equal(t, 0, NextIndex(5, 1))
}

func TestNextAvailable_SkipsCooling(t *testing.T) {
	states := NewProfileStates(testProfiles(3))
	now := time.Now()
	states[0].MarkFailed(now)

	idx, ok := NextAvailable(states, 0, now)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	states[1].MarkFailed(now)
	states[2].MarkFailed(now)
	_, ok = NextAvailable(states, 0, now)
	assert.False(t, ok, "all cooling down")
}

func TestShortestCooldown(t *testing.T) {
	states := NewProfileStates(testProfiles(2))
	now := time.Now()
	assert.Equal(t, time.Duration(0), ShortestCooldown(states, now))

	states[0].MarkFailed(now) // 2s window
	states[1].MarkFailed(now)
	states[1].MarkFailed(now.Add(time.Millisecond)) // doubled again

	wait := ShortestCooldown(states, now.Add(500*time.Millisecond))
	assert.InDelta(t, float64(1500*time.Millisecond), float64(wait), float64(50*time.Millisecond))
}
