// Package auth provides the HTTP transports that attach API credentials
// to outbound requests.
package auth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/dext/tap-intercom/pkg/config"
	"github.com/dext/tap-intercom/pkg/errors"
)

// BearerTransport injects a static bearer token into every request.
type BearerTransport struct {
	Token string
	Base  http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	// Per RoundTripper contract the request must not be mutated.
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.Token)
	return base.RoundTrip(clone)
}

// NewTransport builds the authenticating transport for the configured
// credentials. OAuth2 client credentials win when fully configured, with
// token refresh handled by the oauth2 transport; otherwise the static
// access token is used.
func NewTransport(ctx context.Context, creds config.CredentialsConfig) (http.RoundTripper, error) {
	if creds.UsesOAuth2() {
		cc := clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.TokenURL,
		}
		return &oauth2.Transport{
			Source: cc.TokenSource(ctx),
			Base:   http.DefaultTransport,
		}, nil
	}

	if creds.AccessToken == "" {
		return nil, errors.New(errors.ErrorTypeAuthentication, "no credentials configured")
	}
	return &BearerTransport{Token: creds.AccessToken}, nil
}
