package registry

// Overlay merges override on top of base. Mappings are merged key by key;
// any other override value replaces the base node outright, and keys present
// only in base survive. The result depends only on the two trees, so
// Overlay(Overlay(b, o), o) equals Overlay(b, o). Neither input is modified.
func Overlay(base, override *Registry) *Registry {
	if base == nil {
		base = Empty()
	}
	if override == nil {
		override = Empty()
	}

	sources := make([]string, 0, len(base.sources)+len(override.sources))
	sources = append(sources, base.sources...)
	sources = append(sources, override.sources...)

	entries := make([]Entry, 0, len(base.entries)+len(override.entries))
	entries = append(entries, base.entries...)
	entries = append(entries, override.entries...)

	return &Registry{
		sources: sources,
		root:    merge(base.root, override.root),
		entries: entries,
	}
}

// OverlayAll folds layers left to right; later layers win.
func OverlayAll(layers ...*Registry) *Registry {
	out := Empty()
	for _, layer := range layers {
		out = Overlay(out, layer)
	}
	return out
}

func merge(base, override Value) Value {
	if base.kind != KindMapping || override.kind != KindMapping {
		return override
	}
	out := make(map[string]Value, len(base.m)+len(override.m))
	for k, v := range base.m {
		out[k] = v
	}
	for k, v := range override.m {
		if existing, ok := out[k]; ok {
			out[k] = merge(existing, v)
			continue
		}
		out[k] = v
	}
	return Value{kind: KindMapping, m: out}
}
