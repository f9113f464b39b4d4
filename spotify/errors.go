//
// Date: 2026-10-14
// Author: Spicer Matthews <spicer@cloudmanic.com>
// Copyright (c) 2025 Cloudmanic Labs, LLC. All rights reserved.
//
// Description: Error values returned by configuration, authorization and fetch.
//

package spotify

import "errors"

var (
	// ErrMissingClientID is returned when no client ID is configured.
	ErrMissingClientID = errors.New("spotify client id is required")

	// ErrMissingClientSecret is returned when no client secret is configured.
	ErrMissingClientSecret = errors.New("spotify client secret is required")

	// ErrAuthorization marks every failure to obtain or refresh a token.
	ErrAuthorization = errors.New("spotify authorization failed")

	// ErrStateMismatch is returned when the OAuth redirect carries a state
	// other than the one we generated. It is always wrapped in ErrAuthorization.
	ErrStateMismatch = errors.New("state mismatch")

	// ErrEmptyPage is returned when the client hands back neither a page nor an error.
	ErrEmptyPage = errors.New("spotify returned an empty page response")
)

// IsConfigError reports whether err was caused by missing credentials.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrMissingClientID) || errors.Is(err, ErrMissingClientSecret)
}
