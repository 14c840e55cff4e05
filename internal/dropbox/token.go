package dropbox

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
)

// NewTokenSource returns a TokenSource that mints short-lived access tokens
// from a refresh token. The first call always refreshes; the access token
// is then reused until it expires.
//
// ctx is bound to the underlying oauth2 token source and must outlive it.
func NewTokenSource(ctx context.Context, appKey, refreshToken string, endpoint oauth2.Endpoint, logger *slog.Logger) oauth2.TokenSource {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := OAuthConfig(appKey, endpoint)
	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	return &tokenBridge{src: src, logger: logger}
}

// tokenBridge logs token acquisition and tags refresh failures.
type tokenBridge struct {
	src    oauth2.TokenSource
	logger *slog.Logger
}

func (b *tokenBridge) Token() (*oauth2.Token, error) {
	t, err := b.src.Token()
	if err != nil {
		b.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("dropbox: obtaining token: %w", err)
	}

	b.logger.Debug("token acquired",
		slog.Time("expiry", t.Expiry),
		slog.Bool("valid", t.Valid()),
	)

	return t, nil
}
