package psapi

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/layerloom/psdtranslate/internal/config"
)

// TokenProvider supplies a bearer token for vendor API calls.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// IMSAuthenticator performs the OAuth2 client-credentials exchange against the
// IMS token endpoint. Every call fetches a fresh token; nothing is cached, so
// each job holds its own token.
type IMSAuthenticator struct {
	cfg clientcredentials.Config
}

func NewIMSAuthenticator(cfg config.VendorConfig) *IMSAuthenticator {
	return &IMSAuthenticator{
		cfg: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		},
	}
}

func (a *IMSAuthenticator) AccessToken(ctx context.Context) (string, error) {
	// A new token source per call keeps tokens per-job.
	tok, err := a.cfg.TokenSource(ctx).Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuth)
	}
	return tok.AccessToken, nil
}

var _ TokenProvider = (*IMSAuthenticator)(nil)
