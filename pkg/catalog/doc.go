// Package catalog stores named options sources and hands them to controls
// as deferred suppliers.
//
// A Store only loads and saves one source for one Ref. The Resolver sits on
// top of a Store: it resolves sources, normalizes them into records, applies
// guarded mutations and exposes a choices.Supplier that a control registers
// as its loader.
//
// Data flow:
//
//	Store -> Resolver.Supplier(ref) -> control loader -> choices.Normalize
//
// Two stores ship with the package: MemoryStore for tests and examples, and
// FileStore which reads JSON or YAML files from a directory and can watch it
// for changes.
package catalog
