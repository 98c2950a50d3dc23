// Package registry parses declarative override sources into an immutable
// registry of configuration values addressed by dotted key paths.
//
// A source is a sequence of assignments such as
//
//	serviceplatformen.settings.cpr_endpoint = "http://localhost:8081/soap/sf1520"
//
// applied in order with last-write-wins semantics. Assigning at a path replaces
// the whole subtree below it. Endpoint and client secret values are validated
// while loading, so a registry returned by Load is always usable. Registries
// are never mutated after construction and may be shared between goroutines
// without locking; a reload builds a new registry and swaps the reference.
package registry
