package google

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/meetingscheduler/internal/instrumentation"
)

// callbackTimeout bounds how long the loopback listener waits for consent.
const callbackTimeout = 5 * time.Minute

// LoadOAuthConfig parses a Google client key file ("installed" or "web"
// application) into an OAuth2 configuration for the given scopes.
func LoadOAuthConfig(keyFile string, scopes ...string) (*oauth2.Config, error) {
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client key file %s: %w", keyFile, err)
	}
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}
	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client key file %s: %w", keyFile, err)
	}
	return conf, nil
}

// ConfigForCredential builds the OAuth2 configuration used to refresh a
// stored credential.
func ConfigForCredential(cred *Credential, scopes ...string) *oauth2.Config {
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}
	return &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       scopes,
	}
}

// Authorizer loads the stored credential or, when there is none, runs the
// interactive loopback authorization flow and persists the result.
type Authorizer struct {
	// KeyFile is the client key file downloaded from the Google Cloud console.
	KeyFile string

	// TokenFile is where the credential is persisted.
	TokenFile string

	// Scopes requested during authorization (default: DefaultOAuthScopes).
	Scopes []string

	// Out receives the consent URL and progress messages.
	Out io.Writer

	// OpenBrowser, when set, is called with the consent URL.
	OpenBrowser func(url string) error

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics

	// endpoint overrides google.Endpoint for stored credentials (tests).
	endpoint *oauth2.Endpoint
}

// HasToken reports whether a stored credential exists.
func (a *Authorizer) HasToken() bool {
	return HasCredential(a.TokenFile)
}

// TokenSource returns a token source for the calendar API, authorizing
// interactively if no credential is stored. Every failure wraps ErrAuthorization.
func (a *Authorizer) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	logger := a.logger()

	cred, err := LoadCredential(a.TokenFile)
	switch {
	case err == nil:
		logger.Debug("using stored credential", "path", a.TokenFile)
		return a.refreshSource(ctx, cred), nil
	case errors.Is(err, ErrNoCredential):
		logger.Info("no stored credential, starting authorization", "path", a.TokenFile)
	default:
		return nil, fmt.Errorf("%w: %w", ErrAuthorization, err)
	}

	conf, err := LoadOAuthConfig(a.KeyFile, a.Scopes...)
	if err != nil {
		a.Metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("%w: %w", ErrAuthorization, err)
	}

	token, err := a.Authorize(ctx, conf)
	if err != nil {
		a.Metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("%w: %w", ErrAuthorization, err)
	}
	a.Metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)

	cred = &Credential{
		Type:         CredentialType,
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		RefreshToken: token.RefreshToken,
	}
	if err := SaveCredential(a.TokenFile, cred); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthorization, err)
	}
	logger.Info("saved credential", "path", a.TokenFile)

	return conf.TokenSource(context.WithoutCancel(ctx), token), nil
}

func (a *Authorizer) refreshSource(ctx context.Context, cred *Credential) oauth2.TokenSource {
	conf := ConfigForCredential(cred, a.Scopes...)
	if a.endpoint != nil {
		conf.Endpoint = *a.endpoint
	}
	return conf.TokenSource(context.WithoutCancel(ctx), &oauth2.Token{
		TokenType:    "Bearer",
		RefreshToken: cred.RefreshToken,
		Expiry:       time.Unix(1, 0),
	})
}

// Authorize runs the loopback flow against conf and returns the exchanged token.
// The consent URL uses PKCE and a random state value.
func (a *Authorizer) Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start loopback listener: %w", err)
	}

	flowConf := *conf
	flowConf.RedirectURL = "http://" + ln.Addr().String() + "/"

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := flowConf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger().Warn("loopback listener stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	out := a.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "Authorize calendar access by visiting this URL:\n\n%s\n\n", authURL)
	if a.OpenBrowser != nil {
		if err := a.OpenBrowser(authURL); err != nil {
			a.logger().Debug("could not open browser", "error", err)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, callbackTimeout)
	defer cancel()

	var res callbackResult
	select {
	case res = <-results:
	case <-waitCtx.Done():
		return nil, fmt.Errorf("waiting for authorization callback: %w", waitCtx.Err())
	}
	if res.err != nil {
		return nil, res.err
	}

	token, err := flowConf.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if token.RefreshToken == "" {
		return nil, errors.New("authorization server returned no refresh token")
	}
	fmt.Fprintln(out, "Authorization complete.")
	return token, nil
}

func (a *Authorizer) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

type callbackResult struct {
	code string
	err  error
}

// callbackHandler serves the OAuth redirect. It delivers at most one result.
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		case q.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		default:
			res.code = q.Get("code")
		}

		select {
		case results <- res:
		default:
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if res.err != nil {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprintf(w, "<p>%s</p>", html.EscapeString(res.err.Error()))
			return
		}
		fmt.Fprint(w, "<p>Calendar access granted. You can close this window.</p>")
	})
}
