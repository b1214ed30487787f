package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/authbase/pkg/cryptox"
	"github.com/aussiebroadwan/authbase/pkg/jwtx"
)

// InitAuthKeys builds the per-type signing keyring. Outside production a
// missing secret is replaced with a random one, so tokens do not survive a
// restart.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*jwtx.Keyring, error) {
	secrets := map[jwtx.TokenType]string{
		jwtx.TypeAccess:        cfg.AccessSecret,
		jwtx.TypeRefresh:       cfg.RefreshSecret,
		jwtx.TypeResetPassword: cfg.ResetSecret,
		jwtx.TypeVerifyEmail:   cfg.VerifySecret,
	}

	raw := make(map[jwtx.TokenType][]byte, len(secrets))
	for typ, secret := range secrets {
		if secret == "" {
			if cfg.Production() {
				return nil, fmt.Errorf("no secret configured for %q tokens", typ)
			}
			secret = cryptox.MustRandomString(cryptox.SecretBytes)
			logger.Warn("using ephemeral signing secret", "token_type", typ)
		}
		raw[typ] = []byte(secret)
	}

	keys, err := jwtx.NewKeyring(cfg.Issuer, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to build keyring: %w", err)
	}
	return keys, nil
}
