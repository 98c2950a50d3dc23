package registry

import (
	"fmt"
	"sort"
)

// Entry is one assignment as it appeared in a source.
type Entry struct {
	Path   KeyPath
	Value  Value
	Source string
	Line   int
}

// Registry is an immutable tree of override values.
type Registry struct {
	sources []string
	root    Value
	entries []Entry
}

// Empty returns a registry with no values.
func Empty() *Registry {
	return &Registry{root: Value{kind: KindMapping, m: map[string]Value{}}}
}

// Load parses src, applies its assignments in order and validates the result.
// Errors are *ParseError or *ValidationError.
func Load(src Source) (*Registry, error) {
	assignments, err := src.parse()
	if err != nil {
		return nil, err
	}

	tree := map[string]any{}
	entries := make([]Entry, 0, len(assignments))
	for _, a := range assignments {
		if err := assign(tree, a.path, a.value); err != nil {
			return nil, &ParseError{Source: src.Name, Line: a.line, Msg: err.Error()}
		}
		entries = append(entries, Entry{Path: a.path, Value: fromRaw(a.value), Source: src.Name, Line: a.line})
	}

	reg := &Registry{
		sources: []string{src.Name},
		root:    fromRaw(tree),
		entries: entries,
	}
	if err := Validate(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// LoadFile reads and loads the source at path.
func LoadFile(path string) (*Registry, error) {
	src, err := SourceFromFile(path)
	if err != nil {
		return nil, err
	}
	return Load(src)
}

// Get returns the value stored at exactly path. Mappings are returned whole;
// there is no prefix matching.
func (r *Registry) Get(path KeyPath) (Value, error) {
	if r == nil || len(path) == 0 {
		return Value{}, &KeyNotFoundError{Path: path}
	}
	cur := r.root
	for _, seg := range path {
		next, ok := cur.child(seg)
		if !ok {
			return Value{}, &KeyNotFoundError{Path: path}
		}
		cur = next
	}
	return cur, nil
}

// Lookup is Get for a dotted path.
func (r *Registry) Lookup(dotted string) (Value, error) {
	path, err := ParseKeyPath(dotted)
	if err != nil {
		return Value{}, err
	}
	return r.Get(path)
}

// Root returns the whole tree as a mapping value.
func (r *Registry) Root() Value {
	if r == nil {
		return Empty().root
	}
	return r.root
}

// Entries returns the assignments the registry was built from, in order.
func (r *Registry) Entries() []Entry {
	if r == nil {
		return nil
	}
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		e.Path = e.Path.Append()
		out[i] = e
	}
	return out
}

// Sources names the sources folded into the registry, in application order.
func (r *Registry) Sources() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.sources))
	copy(out, r.sources)
	return out
}

// Leaves flattens the tree into dotted paths of non-mapping values.
func (r *Registry) Leaves() map[string]Value {
	out := map[string]Value{}
	if r == nil {
		return out
	}
	collectLeaves(nil, r.root, out)
	return out
}

// Len counts the leaf values.
func (r *Registry) Len() int {
	return len(r.Leaves())
}

// Paths returns the sorted dotted paths of all leaves.
func (r *Registry) Paths() []string {
	leaves := r.Leaves()
	paths := make([]string, 0, len(leaves))
	for p := range leaves {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func collectLeaves(prefix KeyPath, v Value, out map[string]Value) {
	if v.kind != KindMapping {
		out[prefix.String()] = v
		return
	}
	for k, c := range v.m {
		collectLeaves(prefix.Append(k), c, out)
	}
}

// assign stores value at path inside tree, creating intermediate mappings and
// replacing whatever was at path before.
func assign(tree map[string]any, path KeyPath, value any) error {
	cur := tree
	for i, seg := range path[:len(path)-1] {
		switch next := cur[seg].(type) {
		case nil:
			child := map[string]any{}
			cur[seg] = child
			cur = child
		case map[string]any:
			cur = next
		default:
			return fmt.Errorf("cannot assign %s: %s holds a scalar", path, path[:i+1])
		}
	}
	cur[path.Last()] = copyRaw(value)
	return nil
}

func copyRaw(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(m))
	for k, c := range m {
		out[k] = copyRaw(c)
	}
	return out
}
