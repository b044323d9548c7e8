// Package auth picks and applies the credential mechanism for Jira requests:
// saved SSO session cookies when available, otherwise a configured API token
// as Bearer or Basic.
package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"go-jiractl/internal/config"
)

// ErrNoCredentials means neither session cookies nor an API token are
// available. The caller can trigger a browser login and retry.
var ErrNoCredentials = errors.New("no credentials: set JIRA_API_TOKEN or run 'jiractl auth login'")

// CookieSource supplies a serialized Cookie header from a persisted session.
type CookieSource interface {
	// CookieHeader returns the "name=value; name=value" form and whether
	// any cookies are stored at all.
	CookieHeader() (string, bool)
}

// Refresher re-establishes a session, typically by driving a browser login.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// TokenAuth authenticates with a static API token.
type TokenAuth struct {
	Token    string
	Username string // non-empty together with basic auth type
	Basic    bool
}

func (t *TokenAuth) Name() string {
	if t.Basic {
		return "basic"
	}
	return "bearer"
}

func (t *TokenAuth) Apply(req *http.Request) error {
	if t.Basic && t.Username != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(t.Username + ":" + t.Token))
		req.Header.Set("Authorization", "Basic "+cred)
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+t.Token)
	return nil
}

// CookieAuth authenticates with browser-derived session cookies.
type CookieAuth struct {
	Source CookieSource
}

func (c *CookieAuth) Name() string { return "cookie" }

func (c *CookieAuth) Apply(req *http.Request) error {
	header, ok := c.Source.CookieHeader()
	if !ok {
		return ErrNoCredentials
	}
	req.Header.Set("Cookie", header)
	return nil
}

// Resolved is the outcome of credential resolution, implementing the client's
// Authenticator contract.
type Resolved interface {
	Name() string
	Apply(req *http.Request) error
}

// Resolve picks the credential mechanism: session cookies win when present
// (the SSO case), then a configured token. ErrNoCredentials otherwise.
func Resolve(cfg *config.Config, cookies CookieSource) (Resolved, error) {
	if cookies != nil {
		if _, ok := cookies.CookieHeader(); ok {
			return &CookieAuth{Source: cookies}, nil
		}
	}
	if cfg.APIToken != "" {
		return &TokenAuth{
			Token:    cfg.APIToken,
			Username: cfg.Username,
			Basic:    cfg.AuthType == config.AuthTypeBasic,
		}, nil
	}
	return nil, ErrNoCredentials
}
