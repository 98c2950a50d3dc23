// Package settings binds a registry to typed, validated structs for the
// OpenID Connect provider and the Serviceplatformen registry mocks.
package settings

import (
	"fmt"
	"strings"

	"github.com/eugenenazirov/mockgov-settings/internal/registry"
)

// DefaultProvider is the OpenID Connect provider key used when none is chosen.
const DefaultProvider = "generic"

const redactedSecret = "********"

const (
	defaultsSourceName = "defaults"
	defaultsSource     = `openid_connect.settings.generic.enabled = false`
)

var (
	openIDRoot            = registry.KeyPath{"openid_connect", "settings"}
	serviceplatformenRoot = registry.KeyPath{"serviceplatformen", "settings"}
)

// OpenIDConnect configures a generic OpenID Connect provider.
type OpenIDConnect struct {
	Provider              string `json:"provider" yaml:"provider"`
	Enabled               bool   `json:"enabled" yaml:"enabled"`
	ClientID              string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
	ClientSecret          string `json:"client_secret,omitempty" yaml:"client_secret,omitempty"`
	Issuer                string `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	AuthorizationEndpoint string `json:"authorization_endpoint,omitempty" yaml:"authorization_endpoint,omitempty"`
	TokenEndpoint         string `json:"token_endpoint,omitempty" yaml:"token_endpoint,omitempty"`
	UserinfoEndpoint      string `json:"userinfo_endpoint,omitempty" yaml:"userinfo_endpoint,omitempty"`
	EndSessionEndpoint    string `json:"end_session_endpoint,omitempty" yaml:"end_session_endpoint,omitempty"`
	JWKSURI               string `json:"jwks_uri,omitempty" yaml:"jwks_uri,omitempty"`
}

// Serviceplatformen holds the SOAP endpoints of the registry mocks: CPR
// person lookup (SF1520), CVR company lookup (SF1530) and Digital Post (SF1601).
type Serviceplatformen struct {
	CPREndpoint         string `json:"cpr_endpoint,omitempty" yaml:"cpr_endpoint,omitempty"`
	CVREndpoint         string `json:"cvr_endpoint,omitempty" yaml:"cvr_endpoint,omitempty"`
	DigitalPostEndpoint string `json:"digital_post_endpoint,omitempty" yaml:"digital_post_endpoint,omitempty"`
}

// Settings is the typed view of a registry.
type Settings struct {
	OpenIDConnect     OpenIDConnect     `json:"openid_connect" yaml:"openid_connect"`
	Serviceplatformen Serviceplatformen `json:"serviceplatformen" yaml:"serviceplatformen"`
}

// SecretSource supplies a client secret from outside the override source,
// e.g. a secret store. An empty result leaves the registry value in place.
type SecretSource interface {
	ClientSecret(provider string) (string, error)
}

// SecretSourceFunc adapts a function to SecretSource.
type SecretSourceFunc func(provider string) (string, error)

func (f SecretSourceFunc) ClientSecret(provider string) (string, error) { return f(provider) }

// Option configures Bind.
type Option func(*binder)

// WithProvider selects the OpenID Connect provider key under
// openid_connect.settings.
func WithProvider(name string) Option {
	return func(b *binder) {
		if name = strings.TrimSpace(name); name != "" {
			b.provider = name
		}
	}
}

// WithSecretSource resolves the client secret through src.
func WithSecretSource(src SecretSource) Option {
	return func(b *binder) {
		b.secrets = src
	}
}

type binder struct {
	reg      *registry.Registry
	provider string
	secrets  SecretSource
}

// Defaults is the base layer every deployment starts from: the OpenID
// Connect provider disabled and nothing else set.
func Defaults() *registry.Registry {
	reg, err := registry.Load(registry.Source{Name: defaultsSourceName, Data: []byte(defaultsSource)})
	if err != nil {
		panic(fmt.Sprintf("settings defaults do not load: %v", err))
	}
	return reg
}

// Bind reads the typed settings out of reg. An enabled provider must carry a
// client id, a non-empty client secret and its authorization and token
// endpoints; violations are *registry.ValidationError.
func Bind(reg *registry.Registry, opts ...Option) (Settings, error) {
	if reg == nil {
		reg = registry.Empty()
	}
	b := &binder{reg: reg, provider: DefaultProvider}
	for _, opt := range opts {
		opt(b)
	}

	provider, err := b.openIDConnect()
	if err != nil {
		return Settings{}, err
	}
	sp, err := b.serviceplatformen()
	if err != nil {
		return Settings{}, err
	}
	return Settings{OpenIDConnect: provider, Serviceplatformen: sp}, nil
}

func (b *binder) openIDConnect() (OpenIDConnect, error) {
	node := openIDRoot.Append(b.provider)
	conf := node.Append("settings")
	out := OpenIDConnect{Provider: b.provider}

	enabled, _, err := b.boolean(node.Append("enabled"))
	if err != nil {
		return OpenIDConnect{}, err
	}
	out.Enabled = enabled

	fields := []struct {
		key      string
		dst      *string
		required bool
		endpoint bool
	}{
		{"client_id", &out.ClientID, true, false},
		{"client_secret", &out.ClientSecret, false, false},
		{"issuer", &out.Issuer, false, true},
		{"authorization_endpoint", &out.AuthorizationEndpoint, true, true},
		{"token_endpoint", &out.TokenEndpoint, true, true},
		{"userinfo_endpoint", &out.UserinfoEndpoint, false, true},
		{"end_session_endpoint", &out.EndSessionEndpoint, false, true},
		{"jwks_uri", &out.JWKSURI, false, true},
	}
	for _, f := range fields {
		path := conf.Append(f.key)
		value, found, err := b.str(path, f.endpoint)
		if err != nil {
			return OpenIDConnect{}, err
		}
		if out.Enabled && f.required && (!found || strings.TrimSpace(value) == "") {
			return OpenIDConnect{}, b.reg.Invalid(path, fmt.Sprintf("%s is required when enabled is true", f.key))
		}
		*f.dst = value
	}

	if b.secrets != nil {
		secret, err := b.secrets.ClientSecret(b.provider)
		if err != nil {
			return OpenIDConnect{}, fmt.Errorf("resolve client secret for %s: %w", b.provider, err)
		}
		if secret != "" {
			out.ClientSecret = secret
		}
	}
	if out.Enabled && strings.TrimSpace(out.ClientSecret) == "" {
		return OpenIDConnect{}, b.reg.Invalid(conf.Append("client_secret"), "client_secret must be non-empty when enabled is true")
	}

	return out, nil
}

func (b *binder) serviceplatformen() (Serviceplatformen, error) {
	var out Serviceplatformen
	fields := []struct {
		key string
		dst *string
	}{
		{"cpr_endpoint", &out.CPREndpoint},
		{"cvr_endpoint", &out.CVREndpoint},
		{"digital_post_endpoint", &out.DigitalPostEndpoint},
	}
	for _, f := range fields {
		value, _, err := b.str(serviceplatformenRoot.Append(f.key), true)
		if err != nil {
			return Serviceplatformen{}, err
		}
		*f.dst = value
	}
	return out, nil
}

func (b *binder) str(path registry.KeyPath, endpoint bool) (string, bool, error) {
	v, err := b.reg.Get(path)
	if err != nil {
		return "", false, nil
	}
	s, ok := v.AsString()
	if !ok {
		return "", true, b.reg.Invalid(path, fmt.Sprintf("expected a string, got %s", v.Kind()))
	}
	if endpoint && s != "" {
		if err := registry.ValidateEndpoint(s); err != nil {
			return "", true, b.reg.Invalid(path, err.Error())
		}
	}
	return s, true, nil
}

func (b *binder) boolean(path registry.KeyPath) (bool, bool, error) {
	v, err := b.reg.Get(path)
	if err != nil {
		return false, false, nil
	}
	on, ok := v.AsBool()
	if !ok {
		return false, true, b.reg.Invalid(path, fmt.Sprintf("expected a boolean, got %s", v.Kind()))
	}
	return on, true, nil
}

// Redacted returns a copy safe to print or serve: the client secret is masked.
func (s Settings) Redacted() Settings {
	if s.OpenIDConnect.ClientSecret != "" {
		s.OpenIDConnect.ClientSecret = redactedSecret
	}
	return s
}

// Endpoints lists every configured Serviceplatformen endpoint by key.
func (s Serviceplatformen) Endpoints() map[string]string {
	out := map[string]string{}
	if s.CPREndpoint != "" {
		out["cpr"] = s.CPREndpoint
	}
	if s.CVREndpoint != "" {
		out["cvr"] = s.CVREndpoint
	}
	if s.DigitalPostEndpoint != "" {
		out["digital_post"] = s.DigitalPostEndpoint
	}
	return out
}

// RedactValue masks a registry value read at path when the path names a
// credential.
func RedactValue(path registry.KeyPath, v registry.Value) registry.Value {
	if registry.IsSecretKey(path.Last()) {
		if s, ok := v.AsString(); ok && s == "" {
			return v
		}
		return registry.StringValue(redactedSecret)
	}
	m, ok := v.Mapping()
	if !ok {
		return v
	}
	for k, child := range m {
		m[k] = RedactValue(path.Append(k), child)
	}
	return registry.MappingValue(m)
}
