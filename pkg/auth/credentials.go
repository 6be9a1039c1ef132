// myclaw - personal AI assistant runtime
// License: MIT

// Package auth stores OAuth credentials that can back a provider profile in
// place of a raw API key.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"

	"github.com/myclaw/myclaw/pkg/state"
)

// Credential is one provider's stored token set.
type Credential struct {
	Provider     string    `json:"provider"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	AccountID    string    `json:"account_id,omitempty"`
}

// Token converts the stored credential into an oauth2 token.
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// Expired reports whether the access token is past its expiry. Tokens
// without an expiry never expire.
func (c *Credential) Expired() bool {
	return !c.Expiry.IsZero() && time.Now().After(c.Expiry)
}

func credentialsPath() string {
	return filepath.Join(state.Root(), "credentials.json")
}

func loadAll() (map[string]Credential, error) {
	data, err := os.ReadFile(credentialsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Credential{}, nil
		}
		return nil, err
	}
	creds := map[string]Credential{}
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	return creds, nil
}

// GetCredential returns the stored credential for a provider, or nil when
// none is stored.
func GetCredential(provider string) (*Credential, error) {
	creds, err := loadAll()
	if err != nil {
		return nil, err
	}
	c, ok := creds[provider]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// SaveCredential stores a credential, file mode 0600 since it holds secrets.
func SaveCredential(cred Credential) error {
	creds, err := loadAll()
	if err != nil {
		return err
	}
	creds[cred.Provider] = cred

	if err := os.MkdirAll(filepath.Dir(credentialsPath()), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(credentialsPath(), append(data, '\n'), 0o600)
}

// TokenSource wraps a stored credential as an oauth2.TokenSource so callers
// can refresh through a standard interface.
func TokenSource(provider string, base oauth2.TokenSource) (oauth2.TokenSource, error) {
	cred, err := GetCredential(provider)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, fmt.Errorf("no credentials stored for provider %s", provider)
	}
	if base != nil {
		return oauth2.ReuseTokenSource(cred.Token(), base), nil
	}
	return oauth2.StaticTokenSource(cred.Token()), nil
}
