package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myclaw/myclaw/pkg/state"
)

func TestSaveAndGetCredential(t *testing.T) {
	t.Setenv(state.EnvStateDir, t.TempDir())

	missing, err := GetCredential("anthropic")
	require.NoError(t, err)
	assert.Nil(t, missing)

	cred := Credential{
		Provider:     "anthropic",
		AccessToken:  "at-123",
		RefreshToken: "rt-456",
		TokenType:    "Bearer",
	}
	require.NoError(t, SaveCredential(cred))

	got, err := GetCredential("anthropic")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "at-123", got.AccessToken)
	assert.Equal(t, "Bearer", got.Token().TokenType)
}

func TestCredential_Expired(t *testing.T) {
	c := Credential{AccessToken: "x"}
	assert.False(t, c.Expired(), "no expiry means never expired")

	c.Expiry = time.Now().Add(-time.Minute)
	assert.True(t, c.Expired())

	c.Expiry = time.Now().Add(time.Minute)
	assert.False(t, c.Expired())
}

func TestTokenSource_MissingProvider(t *testing.T) {
	t.Setenv(state.EnvStateDir, t.TempDir())
	_, err := TokenSource("openai", nil)
	assert.Error(t, err)
}

func TestTokenSource_Static(t *testing.T) {
	t.Setenv(state.EnvStateDir, t.TempDir())
	require.NoError(t, SaveCredential(Credential{Provider: "openai", AccessToken: "tok"}))

	src, err := TokenSource("openai", nil)
	require.NoError(t, err)
	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok", tok.AccessToken)
}
