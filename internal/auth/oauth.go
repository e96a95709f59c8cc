package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"shoplist/internal/config"
	"shoplist/internal/list"
)

const (
	// TasksScope grants access to Google Tasks.
	TasksScope = "https://www.googleapis.com/auth/tasks"

	// OAuth callback timeout
	oauthCallbackTimeout = 5 * time.Minute

	// Token exchange timeout
	tokenExchangeTimeout = 30 * time.Second

	// Starting port for OAuth callback server
	oauthStartPort = 8085

	// Max port attempts
	oauthMaxPortAttempts = 5
)

// identityScopes are always requested so the ID token carries sub and email.
var identityScopes = []string{"openid", "email"}

// ErrNoOAuthClient is returned when oauth_client.json is missing.
var ErrNoOAuthClient = errors.New("oauth_client.json not found")

// OAuthGate signs individual users in with Google.
type OAuthGate struct {
	cfg    *config.Config
	scopes []string
	notice io.Writer

	// verify overrides the Google ID token verifier. Used by tests.
	verify TokenVerifier

	mu        sync.Mutex
	listeners []func(list.Identity, bool)
}

// OAuthOption configures an OAuthGate.
type OAuthOption func(*OAuthGate)

// WithScopes requests extra OAuth scopes on top of openid and email.
func WithScopes(scopes ...string) OAuthOption {
	return func(g *OAuthGate) { g.scopes = append(g.scopes, scopes...) }
}

// WithNotice sets where the sign-in URL is printed. Defaults to io.Discard.
func WithNotice(w io.Writer) OAuthOption {
	return func(g *OAuthGate) { g.notice = w }
}

// WithVerifier replaces the Google ID token verifier.
func WithVerifier(v TokenVerifier) OAuthOption {
	return func(g *OAuthGate) { g.verify = v }
}

// NewOAuthGate creates a gate storing its token and identity under cfg.Dir.
func NewOAuthGate(cfg *config.Config, opts ...OAuthOption) *OAuthGate {
	g := &OAuthGate{
		cfg:    cfg,
		scopes: append([]string(nil), identityScopes...),
		notice: io.Discard,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mode implements list.AuthGate.
func (g *OAuthGate) Mode() list.Mode { return list.ModeOAuth }

// OnIdentityChanged implements list.IdentityNotifier.
func (g *OAuthGate) OnIdentityChanged(fn func(list.Identity, bool)) {
	g.mu.Lock()
	g.listeners = append(g.listeners, fn)
	g.mu.Unlock()
}

func (g *OAuthGate) notify(id list.Identity, ok bool) {
	g.mu.Lock()
	listeners := slices.Clone(g.listeners)
	g.mu.Unlock()
	for _, fn := range listeners {
		fn(id, ok)
	}
}

// Restore implements list.AuthGate. A session exists when both the token
// (with a refresh token) and the identity are stored.
func (g *OAuthGate) Restore(ctx context.Context) (list.Identity, bool, error) {
	token, err := loadToken(g.cfg.TokenPath())
	if errors.Is(err, fs.ErrNotExist) {
		return list.Identity{}, false, nil
	}
	if err != nil || token.RefreshToken == "" {
		// Unusable token: treat as logged out so login starts fresh.
		return list.Identity{}, false, nil
	}

	data, err := os.ReadFile(g.cfg.IdentityPath())
	if errors.Is(err, fs.ErrNotExist) {
		return list.Identity{}, false, nil
	}
	if err != nil {
		return list.Identity{}, false, fmt.Errorf("failed to read identity: %w", err)
	}
	var id list.Identity
	if err := json.Unmarshal(data, &id); err != nil || id.UserID == "" {
		return list.Identity{}, false, nil
	}
	id.Kind = list.Individual
	return id, true, nil
}

// SignIn implements list.AuthGate. It runs the loopback OAuth flow with PKCE;
// credential is ignored.
func (g *OAuthGate) SignIn(ctx context.Context, credential string) (list.Identity, error) {
	oauthConfig, err := g.oauthConfig()
	if err != nil {
		return list.Identity{}, err
	}

	// Find available port
	port, listener, err := findAvailablePort()
	if err != nil {
		return list.Identity{}, fmt.Errorf("could not bind to local port for OAuth callback")
	}
	defer listener.Close()

	oauthConfig.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	verifier := oauth2.GenerateVerifier()
	state := oauth2.GenerateVerifier()

	authURL := oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	fmt.Fprintln(g.notice, "Open this URL in your browser:")
	fmt.Fprintln(g.notice, authURL)

	// Start callback server
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.Handle("/callback", callbackHandler(state, codeCh, errCh))

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			trySend(errCh, err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	// Wait for callback or timeout
	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return list.Identity{}, err
	case <-time.After(oauthCallbackTimeout):
		return list.Identity{}, fmt.Errorf("oauth callback timed out")
	case <-ctx.Done():
		return list.Identity{}, fmt.Errorf("sign-in cancelled")
	}

	exchangeCtx, cancelExchange := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancelExchange()

	token, err := oauthConfig.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return list.Identity{}, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return g.complete(ctx, oauthConfig.ClientID, token)
}

// complete verifies the ID token carried by token and persists the session.
func (g *OAuthGate) complete(ctx context.Context, clientID string, token *oauth2.Token) (list.Identity, error) {
	rawIDToken, _ := token.Extra("id_token").(string)

	v := g.verify
	if v == nil {
		gv, err := NewGoogleVerifier(ctx, clientID)
		if err != nil {
			return list.Identity{}, err
		}
		v = gv
	}
	id, err := v.Verify(ctx, rawIDToken)
	if err != nil {
		return list.Identity{}, err
	}

	if err := g.cfg.EnsureDir(); err != nil {
		return list.Identity{}, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := saveJSON(g.cfg.TokenPath(), token); err != nil {
		return list.Identity{}, fmt.Errorf("failed to save token: %w", err)
	}
	if err := saveJSON(g.cfg.IdentityPath(), id); err != nil {
		return list.Identity{}, fmt.Errorf("failed to save identity: %w", err)
	}
	return id, nil
}

// SignOut implements list.AuthGate. It removes the stored token and identity.
func (g *OAuthGate) SignOut(ctx context.Context) error {
	return g.forget()
}

func (g *OAuthGate) forget() error {
	var errs []error
	for _, p := range []string{g.cfg.TokenPath(), g.cfg.IdentityPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to remove credentials: %w", errors.Join(errs...))
	}
	return nil
}

// TokenSource returns a token source backed by the stored token.
// The stored token is read on first use. When a refresh is rejected by the
// provider the stored session is removed and listeners are told the user
// signed out.
func (g *OAuthGate) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &gateTokenSource{gate: g, ctx: ctx}
}

func (g *OAuthGate) oauthConfig() (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(g.cfg.OAuthClientPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w in %s", ErrNoOAuthClient, g.cfg.Dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, g.scopes...)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}
	return oauthConfig, nil
}

type gateTokenSource struct {
	gate *OAuthGate
	ctx  context.Context

	mu   sync.Mutex
	base oauth2.TokenSource
}

func (s *gateTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	if s.base == nil {
		oauthConfig, err := s.gate.oauthConfig()
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		token, err := loadToken(s.gate.cfg.TokenPath())
		if err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("not logged in: %w", err)
		}
		s.base = oauth2.ReuseTokenSource(token, oauthConfig.TokenSource(s.ctx, token))
	}
	base := s.base
	s.mu.Unlock()

	token, err := base.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			s.mu.Lock()
			s.base = nil
			s.mu.Unlock()
			_ = s.gate.forget()
			s.gate.notify(list.Identity{}, false)
			return nil, fmt.Errorf("token expired or revoked (run: shoplist login): %w", err)
		}
		return nil, err
	}
	return token, nil
}

// findAvailablePort tries to find an available port starting from oauthStartPort.
func findAvailablePort() (int, net.Listener, error) {
	for i := 0; i < oauthMaxPortAttempts; i++ {
		port := oauthStartPort + i
		addr := fmt.Sprintf("localhost:%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			return port, listener, nil
		}
	}
	return 0, nil, fmt.Errorf("no available port found")
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}
	return &token, nil
}

// saveJSON writes v to path with mode 0600.
func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// callbackHandler delivers the first callback outcome. Later hits get the
// same response but are not delivered, since SignIn reads only one value.
func callbackHandler(state string, codeCh chan<- string, errCh chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			trySend(errCh, fmt.Errorf("state mismatch in callback"))
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			trySend(errCh, fmt.Errorf("no code in callback"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Signed in</h1><p>You may close this window.</p></body></html>")
		trySend(codeCh, code)
	}
}

func trySend[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}
