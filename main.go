//
// Date: 2026-10-14
// Author: Spicer Matthews <spicer@cloudmanic.com>
// Copyright (c) 2025 Cloudmanic Labs, LLC. All rights reserved.
//
// Description: Spotify library exporter.
// This application authorizes with Spotify without opening a browser and
// lists the current user's playlists and liked tracks.
//

package main

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/cloudmanic/spotify-library/spotify"
)

// main is the entry point for the application.
func main() {
	logger := newLogger(os.Stderr)

	a := newApp(logger, os.Stdin, os.Stdout)
	if err := a.command().Run(context.Background(), os.Args); err != nil {
		if spotify.IsConfigError(err) {
			logger.Fatal("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET environment variables are required", "err", err)
		}
		logger.Fatal("Application error", "err", err)
	}
}

// newLogger creates a logger writing to w with timestamps enabled.
func newLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{ReportTimestamp: true})
}
