package config

import (
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/google"
)

// OAuthProviders builds the social login providers that have credentials configured.
// Callbacks land on BASE_URL/api/auth/<provider>/callback.
func OAuthProviders(cfg *Config) []goth.Provider {
	var providers []goth.Provider
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		providers = append(providers, google.New(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.BaseURL+"/api/auth/google/callback",
			"email", "profile",
		))
	}
	return providers
}
