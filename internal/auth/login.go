package auth

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

var ErrInvalidCredentials = errors.New("invalid api key")

// Credential binds a shared API key to an operator identity and role.
type Credential struct {
	APIKey     string
	OperatorID string
	Role       string
}

// Authenticator exchanges API keys for token pairs.
type Authenticator struct {
	manager *Manager
	creds   []Credential
	now     func() time.Time
}

func NewAuthenticator(m *Manager, creds ...Credential) *Authenticator {
	kept := make([]Credential, 0, len(creds))
	for _, c := range creds {
		if c.APIKey != "" {
			kept = append(kept, c)
		}
	}
	return &Authenticator{manager: m, creds: kept, now: time.Now}
}

func (a *Authenticator) Manager() *Manager { return a.manager }

func (a *Authenticator) Login(apiKey string) (TokenPair, Credential, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return TokenPair{}, Credential{}, ErrInvalidCredentials
	}
	var match *Credential
	for i := range a.creds {
		// compare every key so timing does not reveal which one matched
		if subtle.ConstantTimeCompare([]byte(a.creds[i].APIKey), []byte(apiKey)) == 1 && match == nil {
			match = &a.creds[i]
		}
	}
	if match == nil {
		return TokenPair{}, Credential{}, ErrInvalidCredentials
	}
	pair, err := a.manager.IssuePair(a.now(), match.OperatorID, match.Role)
	if err != nil {
		return TokenPair{}, Credential{}, err
	}
	return pair, *match, nil
}

// Refresh issues a new pair for a valid refresh token. The role is looked up
// again so that a removed key cannot be refreshed.
func (a *Authenticator) Refresh(refreshToken string) (TokenPair, error) {
	now := a.now()
	claims, err := a.manager.Verify(refreshToken, TokenTypeRefresh, now)
	if err != nil {
		return TokenPair{}, err
	}
	for _, c := range a.creds {
		if c.OperatorID == claims.OperatorID {
			return a.manager.IssuePair(now, c.OperatorID, c.Role)
		}
	}
	return TokenPair{}, errors.Mark(errors.Newf("operator %q no longer configured", claims.OperatorID), ErrInvalidToken)
}
