package registry

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	endpointSuffix = "_endpoint"
	jwksURIKey     = "jwks_uri"
	enabledKey     = "enabled"
	secretKey      = "client_secret"
	settingsKey    = "settings"
)

// IsEndpointKey reports whether a leaf with this final segment must hold a URL.
func IsEndpointKey(key string) bool {
	return strings.HasSuffix(key, endpointSuffix) || key == jwksURIKey
}

// IsSecretKey reports whether a leaf with this final segment is a credential.
func IsSecretKey(key string) bool {
	return strings.Contains(strings.ToLower(key), "secret") || strings.Contains(strings.ToLower(key), "password")
}

// ValidateEndpoint checks that raw is an absolute http(s) URL with a host.
func ValidateEndpoint(raw string) error {
	if strings.TrimSpace(raw) != raw || raw == "" {
		return fmt.Errorf("endpoint must be a non-empty URL without surrounding spaces")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("endpoint is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint scheme must be http or https")
	}
	if u.Opaque != "" || u.Hostname() == "" {
		return fmt.Errorf("endpoint must have the form scheme://host[:port]/path")
	}
	if port := u.Port(); port != "" || strings.HasSuffix(u.Host, ":") {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return fmt.Errorf("endpoint port must be between 1 and 65535")
		}
	}
	return nil
}

// Validate walks the tree in key order and returns the first rule violation.
// Load applies it to each source; merged registries need it again, since an
// override can break a rule that only holds across layers.
func Validate(r *Registry) error {
	if r == nil {
		return nil
	}
	return validateNode(r, nil, r.root)
}

func validateNode(r *Registry, path KeyPath, v Value) error {
	if v.kind != KindMapping {
		return validateLeaf(r, path, v)
	}
	if IsEndpointKey(path.Last()) {
		return r.Invalid(path, "endpoint must be a string, got mapping")
	}

	if enabled, ok := v.child(enabledKey); ok {
		on, isBool := enabled.AsBool()
		if !isBool {
			return r.Invalid(path.Append(enabledKey), "enabled must be a boolean")
		}
		if on {
			if err := validateSecret(r, path, v); err != nil {
				return err
			}
		}
	}

	for _, k := range v.Keys() {
		if err := validateNode(r, path.Append(k), v.m[k]); err != nil {
			return err
		}
	}
	return nil
}

func validateLeaf(r *Registry, path KeyPath, v Value) error {
	if !IsEndpointKey(path.Last()) {
		return nil
	}
	s, ok := v.AsString()
	if !ok {
		return r.Invalid(path, fmt.Sprintf("endpoint must be a string, got %s", v.Kind()))
	}
	if err := ValidateEndpoint(s); err != nil {
		return r.Invalid(path, err.Error())
	}
	return nil
}

// validateSecret requires a present client_secret of an enabled node, either
// beside the flag or under its settings mapping, to be non-empty.
func validateSecret(r *Registry, path KeyPath, node Value) error {
	candidates := []KeyPath{{secretKey}, {settingsKey, secretKey}}
	for _, rel := range candidates {
		cur, found := node, true
		for _, seg := range rel {
			if cur, found = cur.child(seg); !found {
				break
			}
		}
		if !found {
			continue
		}
		s, ok := cur.AsString()
		if !ok || strings.TrimSpace(s) == "" {
			return r.Invalid(path.Append(rel...), "client_secret must be non-empty when enabled is true")
		}
	}
	return nil
}

// Invalid builds a *ValidationError for path, located at the entry that last
// wrote it.
func (r *Registry) Invalid(path KeyPath, reason string) error {
	source, line := r.origin(path)
	return &ValidationError{Source: source, Line: line, Path: path, Reason: reason}
}

// origin finds the last entry that wrote path or one of its ancestors.
func (r *Registry) origin(path KeyPath) (string, int) {
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if path.HasPrefix(e.Path) {
			return e.Source, e.Line
		}
	}
	if len(r.sources) > 0 {
		return r.sources[len(r.sources)-1], 0
	}
	return "", 0
}
