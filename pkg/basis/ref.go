package basis

import "fmt"

// ReactiveRef is a cross-service citation: the pair (service identity,
// reactive name). Equality and hashing use both components, which Go's
// comparable struct semantics give for free.
type ReactiveRef struct {
	Service string
	Name    string
}

// String returns the canonical form used as the radix tree key inside a
// BasisStamp and in log output.
func (r ReactiveRef) String() string {
	return fmt.Sprintf("%s/%s", r.Service, r.Name)
}

// Iteration is a monotonically increasing per-reactive counter bumped each
// time the reactive receives a new value produced by a committed
// transaction.
type Iteration uint64

// Version is a monotonically increasing per-reactive counter bumped each
// time the reactive's configuration (expression or kind) changes. Value
// updates never bump Version.
type Version uint64
