//
// Date: 2026-10-14
// Author: Spicer Matthews <spicer@cloudmanic.com>
// Copyright (c) 2025 Cloudmanic Labs, LLC. All rights reserved.
//
// Description: Configuration loading from the environment, .env and TOML files.
//

package spotify

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultRedirectURI = "http://localhost:8888/callback"
	DefaultTokenFile   = ".spotify_token.json"
)

// Config holds the credentials and file locations needed to authorize.
type Config struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	TokenFile    string `toml:"token_file"`
}

// fileConfig is the on-disk layout of a TOML config file.
type fileConfig struct {
	Spotify Config `toml:"spotify"`
}

// envKeys lists the variables read for each setting, first match wins.
var envKeys = struct {
	clientID, clientSecret, redirectURI, tokenFile []string
}{
	clientID:     []string{"SPOTIFY_CLIENT_ID", "CLIENT_ID"},
	clientSecret: []string{"SPOTIFY_CLIENT_SECRET", "CLIENT_SECRET"},
	redirectURI:  []string{"SPOTIFY_REDIRECT_URI", "REDIRECT_URI"},
	tokenFile:    []string{"SPOTIFY_TOKEN_FILE"},
}

// LoadConfigFile reads and parses a TOML configuration file.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return fc.Spotify, nil
}

// LoadConfig builds a Config from an optional TOML file, a .env file in the
// working directory and the process environment, in increasing precedence.
// An empty path skips the TOML file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		var err error
		cfg, err = LoadConfigFile(path)
		if err != nil {
			return Config{}, err
		}
	}

	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg = cfg.withEnv()
	return cfg.withDefaults(), nil
}

// withEnv overlays any settings present in the environment.
func (c Config) withEnv() Config {
	if v := lookupEnv(envKeys.clientID); v != "" {
		c.ClientID = v
	}
	if v := lookupEnv(envKeys.clientSecret); v != "" {
		c.ClientSecret = v
	}
	if v := lookupEnv(envKeys.redirectURI); v != "" {
		c.RedirectURI = v
	}
	if v := lookupEnv(envKeys.tokenFile); v != "" {
		c.TokenFile = v
	}
	return c
}

// withDefaults fills in the redirect URI and token file when unset.
func (c Config) withDefaults() Config {
	if c.RedirectURI == "" {
		c.RedirectURI = DefaultRedirectURI
	}
	if c.TokenFile == "" {
		c.TokenFile = DefaultTokenFile
	}
	return c
}

// Validate checks that the required credentials are present.
func (c Config) Validate() error {
	if c.ClientID == "" {
		return ErrMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrMissingClientSecret
	}
	return nil
}

func lookupEnv(keys []string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
