//
// Date: 2026-10-14
// Author: Spicer Matthews <spicer@cloudmanic.com>
// Copyright (c) 2025 Cloudmanic Labs, LLC. All rights reserved.
//
// Description: Unit tests for the CLI commands.
//

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	spotifyLib "github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/cloudmanic/spotify-library/spotify"
)

// MockSpotifyClient is a mock implementation of the spotify.Client interface for testing.
type MockSpotifyClient struct {
	CurrentUsersPlaylistsFunc func(ctx context.Context, opts ...spotifyLib.RequestOption) (*spotifyLib.SimplePlaylistPage, error)
	CurrentUsersTracksFunc    func(ctx context.Context, opts ...spotifyLib.RequestOption) (*spotifyLib.SavedTrackPage, error)
}

// CurrentUser returns the current user.
func (m *MockSpotifyClient) CurrentUser(ctx context.Context) (*spotifyLib.PrivateUser, error) {
	return &spotifyLib.PrivateUser{User: spotifyLib.User{DisplayName: "Test User"}}, nil
}

// CurrentUsersPlaylists returns the user's playlists.
func (m *MockSpotifyClient) CurrentUsersPlaylists(ctx context.Context, opts ...spotifyLib.RequestOption) (*spotifyLib.SimplePlaylistPage, error) {
	if m.CurrentUsersPlaylistsFunc != nil {
		return m.CurrentUsersPlaylistsFunc(ctx, opts...)
	}
	return &spotifyLib.SimplePlaylistPage{}, nil
}

// CurrentUsersTracks returns the user's saved tracks.
func (m *MockSpotifyClient) CurrentUsersTracks(ctx context.Context, opts ...spotifyLib.RequestOption) (*spotifyLib.SavedTrackPage, error) {
	if m.CurrentUsersTracksFunc != nil {
		return m.CurrentUsersTracksFunc(ctx, opts...)
	}
	return &spotifyLib.SavedTrackPage{}, nil
}

// newTestApp returns an app wired to mock and a buffer capturing stdout.
func newTestApp(mock spotify.Client) (*app, *bytes.Buffer) {
	out := &bytes.Buffer{}
	a := newApp(newLogger(io.Discard), strings.NewReader(""), out)
	a.newClient = func(ctx context.Context) (spotify.Client, error) {
		return mock, nil
	}
	return a, out
}

func decodePage(t *testing.T, raw string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		t.Fatalf("failed to build page: %v", err)
	}
}

// TestPlaylistsCommand_JSON tests JSON output of the playlists command.
func TestPlaylistsCommand_JSON(t *testing.T) {
	raws := []string{
		`{"items":[{"id":"1","name":"A","tracks":{"total":10}}],"next":"next"}`,
		`{"items":[{"id":"2","name":"B","tracks":{"total":20}}],"next":null}`,
	}
	calls := 0
	mock := &MockSpotifyClient{
		CurrentUsersPlaylistsFunc: func(ctx context.Context, opts ...spotifyLib.RequestOption) (*spotifyLib.SimplePlaylistPage, error) {
			var page spotifyLib.SimplePlaylistPage
			decodePage(t, raws[calls], &page)
			calls++
			return &page, nil
		},
	}

	a, out := newTestApp(mock)
	if err := a.command().Run(context.Background(), []string{"spotify-library", "playlists", "--json"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []map[string]any
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode output %q: %v", out.String(), err)
	}
	expected := []map[string]any{
		{"id": "1", "name": "A", "track_total": float64(10)},
		{"id": "2", "name": "B", "track_total": float64(20)},
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

// TestLikedCommand_Table tests table output of the liked command.
func TestLikedCommand_Table(t *testing.T) {
	mock := &MockSpotifyClient{
		CurrentUsersTracksFunc: func(ctx context.Context, opts ...spotifyLib.RequestOption) (*spotifyLib.SavedTrackPage, error) {
			var page spotifyLib.SavedTrackPage
			decodePage(t, `{"items":[{"track":{"uri":"spotify:track:1"}},{"track":{"uri":"spotify:track:2"}}],"next":null}`, &page)
			return &page, nil
		},
	}

	a, out := newTestApp(mock)
	if err := a.command().Run(context.Background(), []string{"spotify-library", "liked"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"spotify:track:1", "spotify:track:2", "Total liked tracks: 2"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out.String())
		}
	}
}

// TestLikedCommand_JSON tests JSON output of the liked command.
func TestLikedCommand_JSON(t *testing.T) {
	mock := &MockSpotifyClient{
		CurrentUsersTracksFunc: func(ctx context.Context, opts ...spotifyLib.RequestOption) (*spotifyLib.SavedTrackPage, error) {
			var page spotifyLib.SavedTrackPage
			decodePage(t, `{"items":[{"track":{"uri":"spotify:track:1"}}]}`, &page)
			return &page, nil
		},
	}

	a, out := newTestApp(mock)
	if err := a.command().Run(context.Background(), []string{"spotify-library", "liked", "--json"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []string
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode output %q: %v", out.String(), err)
	}
	if !reflect.DeepEqual(got, []string{"spotify:track:1"}) {
		t.Errorf("unexpected URIs %v", got)
	}
}

// TestPlaylistsCommand_APIError tests that fetch failures reach the caller.
func TestPlaylistsCommand_APIError(t *testing.T) {
	apiErr := errors.New("service unavailable")
	mock := &MockSpotifyClient{
		CurrentUsersPlaylistsFunc: func(ctx context.Context, opts ...spotifyLib.RequestOption) (*spotifyLib.SimplePlaylistPage, error) {
			return nil, apiErr
		},
	}

	a, out := newTestApp(mock)
	err := a.command().Run(context.Background(), []string{"spotify-library", "playlists"})
	if !errors.Is(err, apiErr) {
		t.Errorf("expected %v, got %v", apiErr, err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}

// TestPlaylistsCommand_MissingCredentials tests that the real client path
// reports a configuration error before any network call.
func TestPlaylistsCommand_MissingCredentials(t *testing.T) {
	for _, k := range []string{"SPOTIFY_CLIENT_ID", "CLIENT_ID", "SPOTIFY_CLIENT_SECRET", "CLIENT_SECRET"} {
		t.Setenv(k, "")
	}

	a := newApp(newLogger(io.Discard), strings.NewReader(""), &bytes.Buffer{})
	args := []string{
		"spotify-library",
		"--token-file", filepath.Join(t.TempDir(), "token.json"),
		"playlists",
	}

	err := a.command().Run(context.Background(), args)
	if !spotify.IsConfigError(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

// TestBefore_ConfigFlag tests that an explicit missing config file is an error.
func TestBefore_ConfigFlag(t *testing.T) {
	a := newApp(newLogger(io.Discard), strings.NewReader(""), &bytes.Buffer{})
	args := []string{
		"spotify-library",
		"--config", filepath.Join(t.TempDir(), "missing.toml"),
		"playlists",
	}

	err := a.command().Run(context.Background(), args)
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("expected config read error, got %v", err)
	}
}

// fakeAuthenticator hands out tokens without contacting Spotify.
type fakeAuthenticator struct {
	state     string
	exchanged []string
}

func (f *fakeAuthenticator) AuthURL(state string, opts ...oauth2.AuthCodeOption) string {
	f.state = state
	return "https://accounts.spotify.com/authorize?state=" + state
}

func (f *fakeAuthenticator) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	f.exchanged = append(f.exchanged, code)
	return &oauth2.Token{AccessToken: "access-" + code, Expiry: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAuthenticator) RefreshToken(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	return nil, errors.New("unexpected refresh")
}

// redirectReader answers the paste prompt with a redirect carrying the
// state the fake authenticator was given.
type redirectReader struct {
	auth *fakeAuthenticator
	r    io.Reader
}

func (rr *redirectReader) Read(p []byte) (int, error) {
	if rr.r == nil {
		rr.r = strings.NewReader(fmt.Sprintf("http://localhost:8888/callback?code=abc&state=%s\n", rr.auth.state))
	}
	return rr.r.Read(p)
}

// rewriteTransport sends every request to target instead of the Spotify API.
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

// TestAuthCommand_UnsavableToken tests that auth uses the exchanged token
// directly, so an unwritable token file does not trigger a second consent.
func TestAuthCommand_UnsavableToken(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "client")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/me" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"testuser123","display_name":"Test User"}`)
	}))
	defer srv.Close()

	target, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Transport: rewriteTransport{target: target}})

	fake := &fakeAuthenticator{}
	out := &bytes.Buffer{}
	a := newApp(newLogger(io.Discard), &redirectReader{auth: fake}, out)
	a.authOptions = []spotify.AuthorizerOption{spotify.WithAuthenticator(fake)}

	args := []string{
		"spotify-library",
		"--token-file", filepath.Join(t.TempDir(), "missing", "token.json"),
		"auth",
	}
	if err := a.command().Run(ctx, args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(fake.exchanged, []string{"abc"}) {
		t.Errorf("expected a single exchange, got %v", fake.exchanged)
	}
	if n := strings.Count(out.String(), "Please visit this URL"); n != 1 {
		t.Errorf("expected one consent prompt, got %d", n)
	}
	if !strings.Contains(out.String(), "Authenticated as: Test User") {
		t.Errorf("expected user in output, got %q", out.String())
	}
	if gotAuth != "Bearer access-abc" {
		t.Errorf("expected exchanged token on request, got %q", gotAuth)
	}
}
