package settings

import (
	"net/url"
	"strings"

	"github.com/zitadel/oidc/v3/pkg/oidc"
	"golang.org/x/oauth2"
)

const (
	keycloakProtocolPath = "/protocol/openid-connect/"
	keycloakRealmsPath   = "/realms/"
	keycloakCertsPath    = "/protocol/openid-connect/certs"
)

// IssuerURL returns the configured issuer, or derives one from the
// authorization endpoint: the realm URL for Keycloak style endpoints
// (…/realms/<realm>/protocol/openid-connect/auth), the origin otherwise.
func (o OpenIDConnect) IssuerURL() string {
	if o.Issuer != "" {
		return o.Issuer
	}
	if o.AuthorizationEndpoint == "" {
		return ""
	}
	if idx := strings.Index(o.AuthorizationEndpoint, keycloakProtocolPath); idx > 0 {
		return o.AuthorizationEndpoint[:idx]
	}
	u, err := url.Parse(o.AuthorizationEndpoint)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// JWKSURL returns the configured JWKS URI or the Keycloak realm default.
func (o OpenIDConnect) JWKSURL() string {
	if o.JWKSURI != "" {
		return o.JWKSURI
	}
	issuer := o.IssuerURL()
	if strings.Contains(issuer, keycloakRealmsPath) {
		return issuer + keycloakCertsPath
	}
	return ""
}

// OAuth2Config builds the client configuration a relying party needs for the
// authorization code flow. Scopes default to openid.
func (o OpenIDConnect) OAuth2Config(redirectURL string, scopes ...string) *oauth2.Config {
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID}
	}
	return &oauth2.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  o.AuthorizationEndpoint,
			TokenURL: o.TokenEndpoint,
		},
	}
}

// Discovery renders the provider metadata in the form served at
// /.well-known/openid-configuration.
func (o OpenIDConnect) Discovery() *oidc.DiscoveryConfiguration {
	return &oidc.DiscoveryConfiguration{
		Issuer:                           o.IssuerURL(),
		AuthorizationEndpoint:            o.AuthorizationEndpoint,
		TokenEndpoint:                    o.TokenEndpoint,
		UserinfoEndpoint:                 o.UserinfoEndpoint,
		EndSessionEndpoint:               o.EndSessionEndpoint,
		JwksURI:                          o.JWKSURL(),
		ScopesSupported:                  []string{oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeEmail},
		ResponseTypesSupported:           []string{string(oidc.ResponseTypeCode)},
		GrantTypesSupported:              []oidc.GrantType{oidc.GrantTypeCode, oidc.GrantTypeRefreshToken},
		SubjectTypesSupported:            []string{"public"},
		IDTokenSigningAlgValuesSupported: []string{"RS256"},
	}
}
