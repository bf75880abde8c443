package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/meetingscheduler/internal/google"
)

type fakeTokens struct {
	stored   bool
	err      error
	requests int
	deadline bool
}

func (f *fakeTokens) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	f.requests++
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token"}), nil
}

func (f *fakeTokens) HasToken() bool {
	return f.stored
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnsureAuthorized_StoredCredential(t *testing.T) {
	tokens := &fakeTokens{stored: true}

	require.NoError(t, ensureAuthorized(context.Background(), tokens, discardLogger()))
	assert.Zero(t, tokens.requests, "a stored credential needs no flow")
}

func TestEnsureAuthorized_RunsFlowOutsideRunTimeout(t *testing.T) {
	tokens := &fakeTokens{}

	require.NoError(t, ensureAuthorized(context.Background(), tokens, discardLogger()))
	assert.Equal(t, 1, tokens.requests)
	assert.False(t, tokens.deadline, "the flow is only bounded by its own callback timeout")
}

func TestEnsureAuthorized_Failure(t *testing.T) {
	tokens := &fakeTokens{err: google.ErrAuthorization}

	err := ensureAuthorized(context.Background(), tokens, discardLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, google.ErrAuthorization))
	assert.Contains(t, err.Error(), "failed to authorize Google Calendar access")
}
