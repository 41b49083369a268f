package app

import (
	"strings"

	"github.com/charlesng35/authcore/internal/auth"
	"github.com/charlesng35/authcore/pkg/mail"
)

// TokenIssuerConfig converts AuthConfig into the parameters expected by the token issuer.
func (c AuthConfig) TokenIssuerConfig() auth.TokenConfig {
	accessTTL := c.JWT.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = auth.DefaultAccessTokenTTL
	}
	refreshTTL := c.JWT.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = auth.DefaultRefreshTokenTTL
	}

	return auth.TokenConfig{
		AccessSecret:    c.JWT.AccessSecret,
		RefreshSecret:   c.JWT.RefreshSecret,
		Issuer:          strings.TrimSpace(c.JWT.Issuer),
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
	}
}

// ActivationOptions converts AuthConfig into ActivationService options.
// publicURL is used for links when no activation base URL is configured.
func (c AuthConfig) ActivationOptions(mailer mail.Mailer, publicURL string) []auth.ActivationOption {
	base := strings.TrimSpace(c.Activation.BaseURL)
	if base == "" {
		base = strings.TrimSpace(publicURL)
	}

	opts := []auth.ActivationOption{
		auth.WithActivationTTL(c.Activation.TTL),
		auth.WithActivationTokenLength(c.Activation.TokenLength),
		auth.WithActivationBaseURL(base),
	}
	if mailer != nil {
		opts = append(opts, auth.WithActivationMailer(mailer))
	}
	return opts
}

// SessionOptions converts AuthConfig into SessionStore options. Cached digests live as long
// as the configured refresh token lifetime.
func (c AuthConfig) SessionOptions(sessionCache auth.SessionCache) []auth.SessionStoreOption {
	opts := []auth.SessionStoreOption{
		auth.WithSessionCacheTTL(c.TokenIssuerConfig().RefreshTokenTTL),
	}
	if sessionCache != nil {
		opts = append(opts, auth.WithSessionCache(sessionCache))
	}
	return opts
}
