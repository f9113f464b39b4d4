//
// Date: 2026-10-14
// Author: Spicer Matthews <spicer@cloudmanic.com>
// Copyright (c) 2025 Cloudmanic Labs, LLC. All rights reserved.
//
// Description: Headless OAuth authorization and token caching for Spotify.
//

package spotify

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	spotifyLib "github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
)

// Scopes is the fixed, read-only permission set requested during authorization.
var Scopes = []string{
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopeUserLibraryRead,
}

// Authenticator is the subset of *spotifyauth.Authenticator used to obtain tokens.
type Authenticator interface {
	AuthURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	RefreshToken(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}

// Authorizer produces Spotify clients authorized for the current user.
// It never opens a browser: the authorize URL is printed and the redirect
// is either pasted back or received by a local callback listener.
type Authorizer struct {
	config   Config
	auth     Authenticator
	in       io.Reader
	out      io.Writer
	listen   bool
	newState func() string
}

// AuthorizerOption configures an Authorizer.
type AuthorizerOption func(*Authorizer)

// WithConsentInput sets where the pasted redirect URL is read from.
func WithConsentInput(r io.Reader) AuthorizerOption {
	return func(a *Authorizer) { a.in = r }
}

// WithConsentOutput sets where the authorize URL and prompts are written.
func WithConsentOutput(w io.Writer) AuthorizerOption {
	return func(a *Authorizer) { a.out = w }
}

// WithCallbackListener receives the redirect on a local HTTP server bound
// to the redirect URI's host instead of asking for it to be pasted.
func WithCallbackListener() AuthorizerOption {
	return func(a *Authorizer) { a.listen = true }
}

// WithAuthenticator replaces the Spotify authenticator.
func WithAuthenticator(auth Authenticator) AuthorizerOption {
	return func(a *Authorizer) { a.auth = auth }
}

// NewAuthorizer validates cfg and prepares an authenticator with the
// read-only scopes. No network calls are made.
func NewAuthorizer(cfg Config, opts ...AuthorizerOption) (*Authorizer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Authorizer{
		config:   cfg,
		in:       os.Stdin,
		out:      os.Stdout,
		newState: uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.auth == nil {
		a.auth = spotifyauth.New(
			spotifyauth.WithClientID(cfg.ClientID),
			spotifyauth.WithClientSecret(cfg.ClientSecret),
			spotifyauth.WithRedirectURL(cfg.RedirectURI),
			spotifyauth.WithScopes(Scopes...),
		)
	}

	return a, nil
}

// Client returns an authorized Spotify client. A cached token is reused
// and refreshed if it has expired; without one the consent flow runs.
func (a *Authorizer) Client(ctx context.Context) (*spotifyLib.Client, error) {
	logger := log.FromContext(ctx)

	tok, err := LoadToken(a.config.TokenFile)
	switch {
	case err != nil:
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Ignoring unreadable token file", "path", a.config.TokenFile, "err", err)
		}
		tok, err = a.Authorize(ctx)
		if err != nil {
			return nil, err
		}
	case !tok.Valid() && tok.RefreshToken == "":
		logger.Info("Cached token expired without a refresh token, re-authenticating")
		tok, err = a.Authorize(ctx)
		if err != nil {
			return nil, err
		}
	case !tok.Valid():
		tok, err = a.refresh(ctx, tok)
		if err != nil {
			return nil, err
		}
	}

	return a.ClientFor(ctx, tok), nil
}

// ClientFor returns a Spotify client authorized with tok. Tokens refreshed
// while the client is in use are written back to the token file.
func (a *Authorizer) ClientFor(ctx context.Context, tok *oauth2.Token) *spotifyLib.Client {
	return spotifyLib.New(oauth2.NewClient(ctx, a.tokenSource(ctx, tok)))
}

// tokenSource hands out tok until it expires, then refreshes and saves it.
func (a *Authorizer) tokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(tok, &savingTokenSource{ctx: ctx, authorizer: a, last: tok})
}

// savingTokenSource refreshes the last token it issued through the Authorizer.
type savingTokenSource struct {
	ctx        context.Context
	authorizer *Authorizer

	mu   sync.Mutex
	last *oauth2.Token
}

// Token implements oauth2.TokenSource.
func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh, err := s.authorizer.refresh(s.ctx, s.last)
	if err != nil {
		return nil, err
	}
	s.last = fresh
	return fresh, nil
}

// Authorize runs the consent flow, exchanges the code for a token and
// saves it to the token file.
func (a *Authorizer) Authorize(ctx context.Context) (*oauth2.Token, error) {
	state := a.newState()

	fmt.Fprintln(a.out, "Please visit this URL to authenticate:")
	fmt.Fprintln(a.out, a.auth.AuthURL(state))

	var (
		code string
		err  error
	)
	if a.listen {
		code, err = a.awaitCallback(ctx, state)
	} else {
		code, err = a.readRedirect(state)
	}
	if err != nil {
		return nil, err
	}

	tok, err := a.auth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange code: %w", ErrAuthorization, err)
	}

	a.saveToken(ctx, tok)
	return tok, nil
}

// refresh trades an expired token for a new one and saves it.
func (a *Authorizer) refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	log.FromContext(ctx).Debug("Refreshing cached token", "expiry", tok.Expiry)

	fresh, err := a.auth.RefreshToken(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to refresh token: %w", ErrAuthorization, err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = tok.RefreshToken
	}

	a.saveToken(ctx, fresh)
	return fresh, nil
}

// saveToken persists tok, logging rather than failing when it cannot.
func (a *Authorizer) saveToken(ctx context.Context, tok *oauth2.Token) {
	if err := SaveToken(a.config.TokenFile, tok); err != nil {
		log.FromContext(ctx).Warn("Failed to save token", "path", a.config.TokenFile, "err", err)
	}
}

// readRedirect prompts for the URL the browser was redirected to.
func (a *Authorizer) readRedirect(state string) (string, error) {
	fmt.Fprint(a.out, "Enter the URL you were redirected to: ")

	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("%w: failed to read redirect URL: %w", ErrAuthorization, err)
	}

	u, err := url.Parse(strings.TrimSpace(line))
	if err != nil {
		return "", fmt.Errorf("%w: invalid redirect URL: %w", ErrAuthorization, err)
	}

	return codeFromQuery(u.Query(), state)
}

// callbackResult carries the outcome of a single OAuth callback.
type callbackResult struct {
	code string
	err  error
}

// awaitCallback serves the redirect URI until one callback arrives.
func (a *Authorizer) awaitCallback(ctx context.Context, state string) (string, error) {
	u, err := url.Parse(a.config.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URI: %w", err)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.Handle(path, callbackHandler(state, results))

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return "", fmt.Errorf("failed to listen for callback: %w", err)
	}

	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.FromContext(ctx).Error("Callback server stopped", "err", err)
		}
	}()
	defer srv.Close()

	log.FromContext(ctx).Debug("Waiting for OAuth callback", "addr", ln.Addr().String(), "path", path)

	select {
	case res := <-results:
		return res.code, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// callbackHandler handles the OAuth callback from Spotify and reports the
// code, or the reason there is none, on results. Only the first callback is
// reported.
func callbackHandler(state string, results chan<- callbackResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := codeFromQuery(r.URL.Query(), state)

		w.Header().Set("Content-Type", "text/plain")
		if err != nil {
			http.Error(w, "Authentication failed: "+err.Error(), http.StatusForbidden)
		} else {
			fmt.Fprint(w, "Authentication successful! You can close this window.")
		}

		select {
		case results <- callbackResult{code: code, err: err}:
		default:
		}
	}
}

// codeFromQuery extracts the authorization code from redirect parameters
// after checking the state.
func codeFromQuery(q url.Values, state string) (string, error) {
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("%w: %s", ErrAuthorization, e)
	}
	if st := q.Get("state"); st != state {
		return "", fmt.Errorf("%w: %w: %q", ErrAuthorization, ErrStateMismatch, st)
	}
	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("%w: redirect is missing the code parameter", ErrAuthorization)
	}
	return code, nil
}

// SaveToken saves the OAuth token to path for reuse in future sessions.
func SaveToken(path string, token *oauth2.Token) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}

// LoadToken reads a token previously written by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var token oauth2.Token
	if err := json.NewDecoder(file).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &token, nil
}
