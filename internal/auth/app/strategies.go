package app

import (
	"log/slog"

	httpapi "github.com/aussiebroadwan/authbase/internal/auth/http"
	"github.com/aussiebroadwan/authbase/internal/auth/oauth"
)

// buildStrategies creates the social login providers that have credentials
// configured. The rest stay nil and are not offered.
func buildStrategies(cfg Config, logger *slog.Logger) httpapi.AuthStrategies {
	var s httpapi.AuthStrategies

	google := oauth.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleSecret,
		CallbackURL:  cfg.GoogleCallback,
	}
	if google.Enabled() {
		s.Google = oauth.NewGoogle(google)
		logger.Info("oauth provider enabled", "provider", oauth.ProviderGoogle)
	}

	facebook := oauth.Config{
		ClientID:     cfg.FacebookID,
		ClientSecret: cfg.FacebookSecret,
		CallbackURL:  cfg.FacebookCallback,
	}
	if facebook.Enabled() {
		s.Facebook = oauth.NewFacebook(facebook)
		logger.Info("oauth provider enabled", "provider", oauth.ProviderFacebook)
	}

	return s
}
