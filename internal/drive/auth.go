package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drivev3 "google.golang.org/api/drive/v3"

	"github.com/mtalcott/notion-file-migration-tool/internal/logger"
)

// Scope limits the migrator to files it creates.
const Scope = drivev3.DriveFileScope

const (
	tokenFileMode     = 0o600
	authorizeTimeout  = 5 * time.Minute
	callbackReadLimit = 10 * time.Second
)

// ErrAuthorization is returned when the installed-app flow does not complete.
var ErrAuthorization = errors.New("drive authorization failed")

// Authenticator produces an authorized HTTP client from an OAuth client
// secrets file and a cached token file.
type Authenticator struct {
	CredentialsFile string
	TokenFile       string
	// Out receives the authorization URL when a browser consent is needed.
	Out io.Writer
	Log logger.Logger
	// Interactive allows running the browser consent flow when no usable token
	// is cached.
	Interactive bool
}

// HTTPClient returns a client that authorizes Drive requests, refreshing and
// re-saving the token as needed. The token is checked before returning, so a
// revoked or expired refresh token fails here rather than on the first API
// call. When Interactive is set, such a token is replaced through the browser
// consent flow.
func (a *Authenticator) HTTPClient(ctx context.Context) (*http.Client, error) {
	cfg, err := a.oauthConfig()
	if err != nil {
		return nil, err
	}

	tok, err := LoadToken(a.TokenFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		a.log().Warn("Ignoring unreadable token file",
			logger.String("token_file", a.TokenFile),
			logger.Error(err),
		)
	}

	if tok == nil || (!tok.Valid() && tok.RefreshToken == "") {
		if tok, err = a.consent(ctx, cfg, "no usable token in "+a.TokenFile); err != nil {
			return nil, err
		}
	}

	ts := a.tokenSource(ctx, cfg, tok)
	if _, refreshErr := ts.Token(); refreshErr != nil {
		if !a.Interactive {
			return nil, fmt.Errorf("%w: refresh token from %s: %w", ErrAuthorization, a.TokenFile, refreshErr)
		}
		a.log().Warn("Cached token could not be refreshed, requesting consent", logger.Error(refreshErr))
		if tok, err = a.consent(ctx, cfg, "token refresh failed"); err != nil {
			return nil, err
		}
		ts = a.tokenSource(ctx, cfg, tok)
	}

	return oauth2.NewClient(ctx, ts), nil
}

// consent runs the browser flow and saves the new token. Without Interactive
// it fails with reason.
func (a *Authenticator) consent(ctx context.Context, cfg *oauth2.Config, reason string) (*oauth2.Token, error) {
	if !a.Interactive {
		return nil, fmt.Errorf("%w: %s", ErrAuthorization, reason)
	}
	tok, err := a.authorize(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if saveErr := SaveToken(a.TokenFile, tok); saveErr != nil {
		return nil, saveErr
	}
	return tok, nil
}

func (a *Authenticator) tokenSource(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) oauth2.TokenSource {
	src := &savingTokenSource{
		base: cfg.TokenSource(ctx, tok),
		path: a.TokenFile,
		last: tok.AccessToken,
		log:  a.log(),
	}
	return oauth2.ReuseTokenSource(tok, src)
}

func (a *Authenticator) oauthConfig() (*oauth2.Config, error) {
	b, err := os.ReadFile(a.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", a.CredentialsFile, err)
	}
	cfg, err := google.ConfigFromJSON(b, Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", a.CredentialsFile, err)
	}
	return cfg, nil
}

func (a *Authenticator) log() logger.Logger {
	if a.Log == nil {
		return logger.NewNop()
	}
	return a.Log
}

// authorize runs the installed-app flow against a loopback redirect.
func (a *Authenticator) authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("%w: listen for callback: %w", ErrAuthorization, err)
	}

	cfg.RedirectURL = "http://" + listener.Addr().String() + "/"
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	if a.Out != nil {
		fmt.Fprintf(a.Out, "Open this URL in a browser to authorize Google Drive access:\n\n%s\n\n", authURL)
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	srv := &http.Server{
		ReadHeaderTimeout: callbackReadLimit,
		Handler:           callbackHandler(state, codeCh, errCh),
	}
	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, authorizeTimeout)
	defer cancel()

	var code string
	select {
	case code = <-codeCh:
	case cbErr := <-errCh:
		return nil, fmt.Errorf("%w: %w", ErrAuthorization, cbErr)
	case <-waitCtx.Done():
		return nil, fmt.Errorf("%w: %w", ErrAuthorization, waitCtx.Err())
	}

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: exchange code: %w", ErrAuthorization, err)
	}
	return tok, nil
}

func callbackHandler(state string, codeCh chan<- string, errCh chan<- error) http.Handler {
	var once sync.Once
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if e := q.Get("error"); e != "" {
			http.Error(w, "authorization denied", http.StatusForbidden)
			once.Do(func() { errCh <- fmt.Errorf("consent denied: %s", e) })
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, "Authorization complete. You can close this window.\n")
		once.Do(func() { codeCh <- code })
	})
}

// LoadToken reads a cached OAuth token.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if decodeErr := json.NewDecoder(f).Decode(tok); decodeErr != nil {
		return nil, fmt.Errorf("failed to decode token %s: %w", path, decodeErr)
	}
	return tok, nil
}

// SaveToken writes tok to path, readable only by the current user.
func SaveToken(path string, tok *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, tokenFileMode)
	if err != nil {
		return fmt.Errorf("failed to write token %s: %w", path, err)
	}
	defer f.Close()

	if encodeErr := json.NewEncoder(f).Encode(tok); encodeErr != nil {
		return fmt.Errorf("failed to encode token: %w", encodeErr)
	}
	return nil
}

// savingTokenSource persists refreshed tokens.
type savingTokenSource struct {
	base oauth2.TokenSource
	path string
	log  logger.Logger

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if saveErr := SaveToken(s.path, tok); saveErr != nil {
			s.log.Warn("Could not persist refreshed token", logger.Error(saveErr))
		}
	}
	return tok, nil
}
