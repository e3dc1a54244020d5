package basis

import (
	iradix "github.com/hashicorp/go-immutable-radix"
)

// Stamp maps a root ReactiveRef to the latest Iteration of that root folded
// into a value. The zero value is Empty.
type Stamp struct {
	tree *iradix.Tree
}

// Empty is the basis with no roots folded in.
var Empty = Stamp{}

func (b Stamp) treeOrNew() *iradix.Tree {
	if b.tree == nil {
		return iradix.New()
	}
	return b.tree
}

// IsEmpty reports whether the basis has no roots.
func (b Stamp) IsEmpty() bool {
	return b.tree == nil || b.tree.Len() == 0
}

// Latest returns the latest iteration recorded for r, or 0 if r is not
// present in the basis.
func (b Stamp) Latest(r ReactiveRef) Iteration {
	if b.tree == nil {
		return 0
	}
	v, ok := b.tree.Get([]byte(r.String()))
	if !ok {
		return 0
	}
	return v.(Iteration)
}

// Add returns a new Stamp with b[r] set to max(b[r], i).
func (b Stamp) Add(r ReactiveRef, i Iteration) Stamp {
	if i <= b.Latest(r) {
		return b
	}
	tree, _, _ := b.treeOrNew().Insert([]byte(r.String()), i)
	return Stamp{tree: tree}
}

// MergeFrom returns a new Stamp with every entry of other folded in via Add.
func (b Stamp) MergeFrom(other Stamp) Stamp {
	if other.tree == nil {
		return b
	}
	out := b
	other.tree.Root().Walk(func(k []byte, v interface{}) bool {
		out = out.Add(refFromKey(k), v.(Iteration))
		return false
	})
	return out
}

// PrecEqRestrictedTo reports whether b is no newer than other on the root
// set s: for every r in s, b.Latest(r) <= other.Latest(r).
func (b Stamp) PrecEqRestrictedTo(other Stamp, s map[ReactiveRef]struct{}) bool {
	for r := range s {
		if b.Latest(r) > other.Latest(r) {
			return false
		}
	}
	return true
}

// Entries returns every (ReactiveRef, Iteration) pair recorded in the basis.
// Order is unspecified.
func (b Stamp) Entries() map[ReactiveRef]Iteration {
	out := make(map[ReactiveRef]Iteration)
	if b.tree == nil {
		return out
	}
	b.tree.Root().Walk(func(k []byte, v interface{}) bool {
		out[refFromKey(k)] = v.(Iteration)
		return false
	})
	return out
}

// refFromKey reverses ReactiveRef.String(); the radix tree only ever stores
// keys produced by that method, so splitting on the first "/" is safe for
// reactive names that do not themselves contain "/".
func refFromKey(k []byte) ReactiveRef {
	s := string(k)
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return ReactiveRef{Service: s[:i], Name: s[i+1:]}
		}
	}
	return ReactiveRef{Name: s}
}
