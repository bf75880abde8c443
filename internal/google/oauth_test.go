package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGoogle serves the token endpoint used by the authorization and refresh flows.
type fakeGoogle struct {
	srv      *httptest.Server
	verifier chan string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{verifier: make(chan string, 1)}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			select {
			case f.verifier <- r.Form.Get("code_verifier"):
			default:
			}
			if r.Form.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"access-1","token_type":"Bearer","refresh_token":"refresh-1","expires_in":3600}`))
		case "refresh_token":
			if r.Form.Get("refresh_token") != "refresh-token" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"access-2","token_type":"Bearer","expires_in":3600}`))
		default:
			http.Error(w, "unsupported grant", http.StatusBadRequest)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGoogle) writeKeyFile(t *testing.T, dir string) string {
	t.Helper()
	key := map[string]any{
		"installed": map[string]any{
			"client_id":     "cid",
			"client_secret": "secret",
			"auth_uri":      f.srv.URL + "/auth",
			"token_uri":     f.srv.URL + "/token",
			"redirect_uris": []string{"http://localhost"},
		},
	}
	data, err := json.Marshal(key)
	require.NoError(t, err)
	path := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

// consent simulates the browser: it follows the consent URL straight to the
// loopback redirect with the given code.
func consent(code string) func(string) error {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		if q.Get("code_challenge_method") != "S256" {
			return fmt.Errorf("missing PKCE challenge")
		}
		redirect := q.Get("redirect_uri") + "?code=" + url.QueryEscape(code) + "&state=" + url.QueryEscape(q.Get("state"))
		go func() {
			resp, err := http.Get(redirect)
			if err == nil {
				_ = resp.Body.Close()
			}
		}()
		return nil
	}
}

func TestLoadOAuthConfig(t *testing.T) {
	f := newFakeGoogle(t)
	keyFile := f.writeKeyFile(t, t.TempDir())

	conf, err := LoadOAuthConfig(keyFile)
	require.NoError(t, err)
	assert.Equal(t, "cid", conf.ClientID)
	assert.Equal(t, "secret", conf.ClientSecret)
	assert.Equal(t, f.srv.URL+"/token", conf.Endpoint.TokenURL)
	assert.Equal(t, DefaultOAuthScopes, conf.Scopes)

	_, err = LoadOAuthConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestAuthorizer_InteractiveFlowSavesCredential(t *testing.T) {
	f := newFakeGoogle(t)
	dir := t.TempDir()
	var out strings.Builder

	a := &Authorizer{
		KeyFile:     f.writeKeyFile(t, dir),
		TokenFile:   filepath.Join(dir, "token.json"),
		Out:         &out,
		OpenBrowser: consent("good-code"),
	}
	require.False(t, a.HasToken())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ts, err := a.TokenSource(ctx)
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)

	assert.NotEmpty(t, <-f.verifier, "code verifier must be sent with the exchange")
	assert.Contains(t, out.String(), "Authorize calendar access")

	cred, err := LoadCredential(a.TokenFile)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", cred.RefreshToken)
	assert.Equal(t, "cid", cred.ClientID)
	assert.True(t, a.HasToken())
}

func TestAuthorizer_ExchangeFailureIsAuthorizationError(t *testing.T) {
	f := newFakeGoogle(t)
	dir := t.TempDir()

	a := &Authorizer{
		KeyFile:     f.writeKeyFile(t, dir),
		TokenFile:   filepath.Join(dir, "token.json"),
		Out:         &strings.Builder{},
		OpenBrowser: consent("bad-code"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := a.TokenSource(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthorization))
	assert.NoFileExists(t, a.TokenFile)
}

func TestAuthorizer_MissingKeyFile(t *testing.T) {
	dir := t.TempDir()
	a := &Authorizer{
		KeyFile:   filepath.Join(dir, "credentials.json"),
		TokenFile: filepath.Join(dir, "token.json"),
	}

	_, err := a.TokenSource(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthorization))
}

func TestAuthorizer_UsesStoredCredential(t *testing.T) {
	f := newFakeGoogle(t)
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token.json")
	require.NoError(t, SaveCredential(tokenFile, testCredential()))

	a := &Authorizer{
		TokenFile: tokenFile,
		OpenBrowser: func(string) error {
			t.Fatal("stored credential must not trigger authorization")
			return nil
		},
		endpoint: &oauth2.Endpoint{TokenURL: f.srv.URL + "/token"},
	}

	ts, err := a.TokenSource(context.Background())
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok.AccessToken)
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
		wantErr    bool
		delivered  bool
	}{
		{"success", "?state=s1&code=abc", http.StatusOK, "abc", false, true},
		{"state mismatch", "?state=other&code=abc", http.StatusBadRequest, "", false, false},
		{"missing code", "?state=s1", http.StatusBadRequest, "", false, false},
		{"denied", "?error=access_denied", http.StatusForbidden, "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make(chan callbackResult, 1)
			rec := httptest.NewRecorder()
			callbackHandler("s1", results).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if !tt.delivered {
				assert.Len(t, results, 0)
				return
			}
			res := <-results
			assert.Equal(t, tt.wantCode, res.code)
			assert.Equal(t, tt.wantErr, res.err != nil)
		})
	}
}

func TestFileTokenProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	p := NewFileTokenProvider(path)

	assert.False(t, p.HasToken())
	_, err := p.TokenSource(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthorization))
	assert.True(t, errors.Is(err, ErrNoCredential))

	require.NoError(t, SaveCredential(path, testCredential()))
	assert.True(t, p.HasToken())
	ts, err := p.TokenSource(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, ts)
}
