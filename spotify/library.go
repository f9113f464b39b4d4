//
// Date: 2026-10-14
// Author: Spicer Matthews <spicer@cloudmanic.com>
// Copyright (c) 2025 Cloudmanic Labs, LLC. All rights reserved.
//
// Description: Paginated fetching of the current user's playlists and liked tracks.
//

package spotify

import (
	"context"

	"github.com/charmbracelet/log"

	spotifyLib "github.com/zmb3/spotify/v2"
)

// PageLimit is the number of items requested per page.
const PageLimit = 50

// pageFunc requests one page and returns its raw items and continuation URL.
type pageFunc[R any] func(ctx context.Context, opts ...spotifyLib.RequestOption) ([]R, string, error)

// FetchUserPlaylists returns every playlist owned or followed by the current
// user, in the order the API returns them.
func FetchUserPlaylists(ctx context.Context, client PlaylistLister) ([]Playlist, error) {
	fetch := func(ctx context.Context, opts ...spotifyLib.RequestOption) ([]spotifyLib.SimplePlaylist, string, error) {
		page, err := client.CurrentUsersPlaylists(ctx, opts...)
		if err != nil {
			return nil, "", err
		}
		if page == nil {
			return nil, "", ErrEmptyPage
		}
		return page.Playlists, page.Next, nil
	}

	return paginate(ctx, "playlists", fetch, func(item spotifyLib.SimplePlaylist) Playlist {
		return Playlist{
			ID:         string(item.ID),
			Name:       item.Name,
			TrackTotal: int(item.Tracks.Total),
		}
	})
}

// FetchLikedTracks returns the URI of every track saved in the current
// user's library, in the order the API returns them.
func FetchLikedTracks(ctx context.Context, client SavedTrackLister) ([]string, error) {
	fetch := func(ctx context.Context, opts ...spotifyLib.RequestOption) ([]spotifyLib.SavedTrack, string, error) {
		page, err := client.CurrentUsersTracks(ctx, opts...)
		if err != nil {
			return nil, "", err
		}
		if page == nil {
			return nil, "", ErrEmptyPage
		}
		return page.Tracks, page.Next, nil
	}

	return paginate(ctx, "liked tracks", fetch, func(item spotifyLib.SavedTrack) string {
		return string(item.URI)
	})
}

// paginate drives fetch from offset zero until a page arrives without a
// next URL. The offset advances by the number of items actually received.
// Errors are returned as is and discard everything gathered so far.
func paginate[R, T any](ctx context.Context, resource string, fetch pageFunc[R], project func(R) T) ([]T, error) {
	logger := log.FromContext(ctx)

	results := make([]T, 0)
	offset := 0

	for {
		items, next, err := fetch(ctx, spotifyLib.Limit(PageLimit), spotifyLib.Offset(offset))
		if err != nil {
			return nil, err
		}

		logger.Debug("Fetched page", "resource", resource, "count", len(items), "offset", offset)

		for _, item := range items {
			results = append(results, project(item))
		}

		if next == "" {
			break
		}
		offset += len(items)
	}

	logger.Info("Fetch complete", "resource", resource, "total", len(results))
	return results, nil
}
