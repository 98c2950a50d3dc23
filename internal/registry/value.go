package registry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind enumerates the value shapes a source may assign.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindBool
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindMapping:
		return "mapping"
	default:
		return "invalid"
	}
}

// Value is a string, a boolean or a mapping of further values. The zero Value
// is invalid. Mappings are copied on the way in and on the way out, so a Value
// never changes once built.
type Value struct {
	kind Kind
	str  string
	b    bool
	m    map[string]Value
}

func StringValue(s string) Value { return Value{kind: KindString, str: s} }

func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// MappingValue builds a mapping from a copy of m.
func MappingValue(m map[string]Value) Value {
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return Value{kind: KindMapping, m: out}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsString returns the string and true when v holds a string.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsBool returns the boolean and true when v holds a boolean.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Mapping returns a copy of the mapping and true when v holds one.
func (v Value) Mapping() (map[string]Value, bool) {
	if v.kind != KindMapping {
		return nil, false
	}
	out := make(map[string]Value, len(v.m))
	for k, child := range v.m {
		out[k] = child
	}
	return out, true
}

// Keys returns the sorted keys of a mapping, nil for other kinds.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (v Value) child(key string) (Value, bool) {
	if v.kind != KindMapping {
		return Value{}, false
	}
	c, ok := v.m[key]
	return c, ok
}

// Equal reports deep equality.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindBool:
		return v.b == other.b
	case KindMapping:
		if len(v.m) != len(other.m) {
			return false
		}
		for k, c := range v.m {
			oc, ok := other.m[k]
			if !ok || !c.Equal(oc) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Interface converts v into plain Go values (string, bool, map[string]any)
// suitable for encoders.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		return v.b
	case KindMapping:
		out := make(map[string]any, len(v.m))
		for k, c := range v.m {
			out[k] = c.Interface()
		}
		return out
	default:
		return nil
	}
}

// String renders v in the assignment syntax.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.str)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindMapping:
		var sb strings.Builder
		sb.WriteString("{")
		for i, k := range v.Keys() {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s = %s", k, v.m[k])
		}
		sb.WriteString("}")
		return sb.String()
	default:
		return "<invalid>"
	}
}

// fromRaw converts the parser's working tree (string, bool, map[string]any)
// into a Value.
func fromRaw(raw any) Value {
	switch t := raw.(type) {
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, c := range t {
			m[k] = fromRaw(c)
		}
		return Value{kind: KindMapping, m: m}
	default:
		return Value{}
	}
}
