/*
Package eval implements Meerkat's small-step expression evaluator: the
reducer shared by every transaction coordinator to turn an expression over
reactives into a value, given an external read callback for reactive lookups.

# Architecture

	┌───────────────────────── EVAL ─────────────────────────────┐
	│                                                              │
	│  Expr (literal, ident, unary/binary, if, lambda, app,       │
	│        action)                                              │
	│                     │                                       │
	│        ┌────────────┼────────────┐                          │
	│        ▼            ▼            ▼                          │
	│    EvalReads       Eval       PartialEval                   │
	│   (collect refs) (full reduce) (suspend on unknown)         │
	└──────────────────────────────────────────────────────────────┘

Lambdas and actions are first-class values; on first evaluation an
environment is captured from the innermost local-binding frame if one is not
already attached, and is immutable afterward (pkg/eval's Env is never
mutated in place once assigned to an Expr's Env field — a new Expr node is
produced instead).

`EvalReads` results are memoized per expression node in a bounded LRU
(`github.com/hashicorp/golang-lru/v2`). A reactive cell calls `EvalReads` once
per (re)configuration and caches the result as its inputs, so batch discovery
does not call it; coordinators and graph rendering call it again on the same
expressions, and the set of free identifiers in an expression is a pure
function of the expression's identity, so those repeat calls hit the cache.
*/
package eval
