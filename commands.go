//
// Date: 2026-10-14
// Author: Spicer Matthews <spicer@cloudmanic.com>
// Copyright (c) 2025 Cloudmanic Labs, LLC. All rights reserved.
//
// Description: Command definitions and actions for the CLI.
//

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/cloudmanic/spotify-library/spotify"
)

const defaultConfigFile = "config.toml"

// app holds the dependencies shared by every command.
type app struct {
	logger *log.Logger
	stdin  io.Reader
	stdout io.Writer

	configPath string
	tokenFile  string
	listen     bool

	// newClient returns an authorized client. Tests replace it.
	newClient func(ctx context.Context) (spotify.Client, error)

	// authOptions are appended when building the Authorizer.
	authOptions []spotify.AuthorizerOption
}

func newApp(logger *log.Logger, stdin io.Reader, stdout io.Writer) *app {
	a := &app{logger: logger, stdin: stdin, stdout: stdout}
	a.newClient = a.authorizedClient
	return a
}

// command builds the root command.
func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:      "spotify-library",
		Usage:     "Export your Spotify playlists and liked tracks",
		Writer:    a.stdout,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML configuration file",
				Value:   defaultConfigFile,
			},
			&cli.StringFlag{
				Name:  "token-file",
				Usage: "Where the OAuth token is cached",
			},
			&cli.BoolFlag{
				Name:  "listen",
				Usage: "Receive the OAuth redirect on the redirect URI instead of pasting it",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: a.before,
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authorize with Spotify and cache the token",
				Action: a.authAction,
			},
			{
				Name:  "playlists",
				Usage: "List your Spotify playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
				},
				Action: a.playlistsAction,
			},
			{
				Name:  "liked",
				Usage: "List the URIs of your liked tracks",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
				},
				Action: a.likedAction,
			},
		},
	}
}

// before applies the global flags and attaches the logger to the context.
func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		a.logger.SetLevel(log.DebugLevel)
	}

	a.configPath = cmd.String("config")
	if !cmd.IsSet("config") {
		if _, err := os.Stat(a.configPath); errors.Is(err, os.ErrNotExist) {
			a.configPath = ""
		}
	}
	a.tokenFile = cmd.String("token-file")
	a.listen = cmd.Bool("listen")

	return log.WithContext(ctx, a.logger), nil
}

// authorizer builds an Authorizer from the config file, environment and flags.
func (a *app) authorizer() (*spotify.Authorizer, error) {
	cfg, err := spotify.LoadConfig(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.tokenFile != "" {
		cfg.TokenFile = a.tokenFile
	}

	opts := []spotify.AuthorizerOption{
		spotify.WithConsentInput(a.stdin),
		spotify.WithConsentOutput(a.stdout),
	}
	if a.listen {
		opts = append(opts, spotify.WithCallbackListener())
	}
	opts = append(opts, a.authOptions...)
	return spotify.NewAuthorizer(cfg, opts...)
}

// authorizedClient returns a client using the cached token or a fresh consent.
func (a *app) authorizedClient(ctx context.Context) (spotify.Client, error) {
	authorizer, err := a.authorizer()
	if err != nil {
		return nil, err
	}

	client, err := authorizer.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// authAction forces a new consent and reports who was authorized.
func (a *app) authAction(ctx context.Context, cmd *cli.Command) error {
	authorizer, err := a.authorizer()
	if err != nil {
		return err
	}
	tok, err := authorizer.Authorize(ctx)
	if err != nil {
		return err
	}
	return a.printUser(ctx, authorizer.ClientFor(ctx, tok))
}

// printUser verifies the client by fetching the current user.
func (a *app) printUser(ctx context.Context, client spotify.Client) error {
	user, err := client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to get user info: %w", err)
	}
	fmt.Fprintf(a.stdout, "Authenticated as: %s\n", user.DisplayName)
	return nil
}

func (a *app) playlistsAction(ctx context.Context, cmd *cli.Command) error {
	client, err := a.newClient(ctx)
	if err != nil {
		return err
	}

	playlists, err := spotify.FetchUserPlaylists(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to get playlists: %w", err)
	}

	if cmd.Bool("json") {
		return spotify.WriteJSON(a.stdout, playlists)
	}
	spotify.PrintPlaylistsTable(a.stdout, playlists)
	return nil
}

func (a *app) likedAction(ctx context.Context, cmd *cli.Command) error {
	client, err := a.newClient(ctx)
	if err != nil {
		return err
	}

	uris, err := spotify.FetchLikedTracks(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to get liked tracks: %w", err)
	}

	if cmd.Bool("json") {
		return spotify.WriteJSON(a.stdout, uris)
	}
	spotify.PrintLikedTracksTable(a.stdout, uris)
	return nil
}
