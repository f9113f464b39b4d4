//
// Date: 2026-10-14
// Author: Spicer Matthews <spicer@cloudmanic.com>
// Copyright (c) 2025 Cloudmanic Labs, LLC. All rights reserved.
//
// Description: Type definitions and interfaces for the Spotify library exporter.
//

package spotify

import (
	"context"

	spotifyLib "github.com/zmb3/spotify/v2"
)

// PlaylistLister lists the current user's playlists one page at a time.
type PlaylistLister interface {
	CurrentUsersPlaylists(ctx context.Context, opts ...spotifyLib.RequestOption) (*spotifyLib.SimplePlaylistPage, error)
}

// SavedTrackLister lists the tracks saved in the current user's library
// one page at a time.
type SavedTrackLister interface {
	CurrentUsersTracks(ctx context.Context, opts ...spotifyLib.RequestOption) (*spotifyLib.SavedTrackPage, error)
}

// Client defines the interface for the Spotify API operations this
// application uses. *spotifyLib.Client satisfies it; tests mock it.
type Client interface {
	PlaylistLister
	SavedTrackLister
	CurrentUser(ctx context.Context) (*spotifyLib.PrivateUser, error)
}

// Playlist is the normalized form of a playlist returned by the API.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TrackTotal int    `json:"track_total"`
}

var _ Client = (*spotifyLib.Client)(nil)
