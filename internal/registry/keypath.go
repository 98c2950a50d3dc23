package registry

import (
	"fmt"
	"strings"
)

// KeyPath addresses a value by its ordered segments, e.g.
// ["openid_connect", "settings", "generic", "enabled"].
type KeyPath []string

// ParseKeyPath splits a dotted path into segments. Segments must be non-empty
// and contain only letters, digits, '_' and '-'.
func ParseKeyPath(raw string) (KeyPath, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidKeyPath)
	}
	parts := strings.Split(raw, ".")
	for _, part := range parts {
		if !validSegment(part) {
			return nil, fmt.Errorf("%w: bad segment %q in %q", ErrInvalidKeyPath, part, raw)
		}
	}
	return KeyPath(parts), nil
}

// MustParseKeyPath is ParseKeyPath for constant paths; it panics on error.
func MustParseKeyPath(raw string) KeyPath {
	p, err := ParseKeyPath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func (p KeyPath) String() string {
	return strings.Join(p, ".")
}

// Append returns a new path with segments added; p is left untouched.
func (p KeyPath) Append(segments ...string) KeyPath {
	out := make(KeyPath, 0, len(p)+len(segments))
	out = append(out, p...)
	return append(out, segments...)
}

// HasPrefix reports whether prefix is p or one of its ancestors.
func (p KeyPath) HasPrefix(prefix KeyPath) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (p KeyPath) Equal(other KeyPath) bool {
	return len(p) == len(other) && p.HasPrefix(other)
}

// Last returns the final segment or "" for an empty path.
func (p KeyPath) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

func validSegment(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
