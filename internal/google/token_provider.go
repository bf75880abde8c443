package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenProvider is an interface for providing OAuth tokens for Google APIs.
// This abstraction allows different token sources (interactive, file-only).
type TokenProvider interface {
	// TokenSource returns a token source for the calendar API.
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)

	// HasToken checks if a stored credential exists.
	HasToken() bool
}

// FileTokenProvider provides tokens from a stored credential file only. It
// never starts an interactive flow, which makes it safe for the MCP stdio
// transport.
type FileTokenProvider struct {
	TokenFile string
	Scopes    []string
}

// NewFileTokenProvider creates a new file-based token provider
func NewFileTokenProvider(tokenFile string) *FileTokenProvider {
	return &FileTokenProvider{TokenFile: tokenFile}
}

// TokenSource loads the credential and returns a refreshing token source.
func (p *FileTokenProvider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	cred, err := LoadCredential(p.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w (run 'meetingscheduler auth' first)", ErrAuthorization, err)
	}
	return ConfigForCredential(cred, p.Scopes...).TokenSource(context.WithoutCancel(ctx), &oauth2.Token{
		TokenType:    "Bearer",
		RefreshToken: cred.RefreshToken,
	}), nil
}

// HasToken checks if a credential file exists
func (p *FileTokenProvider) HasToken() bool {
	return HasCredential(p.TokenFile)
}

var (
	_ TokenProvider = (*Authorizer)(nil)
	_ TokenProvider = (*FileTokenProvider)(nil)
)
