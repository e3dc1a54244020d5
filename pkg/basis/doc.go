/*
Package basis implements Meerkat's causal-consistency primitives: reactive
names and references, per-reactive Version and Iteration counters, and the
BasisStamp that ties a value to the set of root iterations folded into it.

# Architecture

	┌──────────────────────── BASIS ────────────────────────────┐
	│                                                             │
	│  ReactiveRef{Service, Name}                                │
	│    - cross-service citation, comparable Go struct          │
	│                                                             │
	│  BasisStamp                                                │
	│    - root ReactiveRef -> Iteration, backed by an           │
	│      immutable radix tree (hashicorp/go-immutable-radix)   │
	│    - value semantics: every merge returns a new BasisStamp │
	│      and never mutates the receiver                        │
	└─────────────────────────────────────────────────────────────┘

BasisStamp is deliberately a value type from the caller's point of view even
though it is backed by a tree: reactive cells, coordinators, and messages all
copy BasisStamp by passing the struct around, and the underlying radix tree's
structural sharing makes that copy cheap without risking one goroutine's
merge mutating a basis another goroutine (or actor) is still reading.
*/
package basis
