package basis

// Value is the evaluated payload carried inside a StampedValue. The
// evaluator produces pkg/eval.Expr values; basis only needs to move them
// around, so it is kept opaque here to avoid an import cycle.
type Value interface{}

// StampedValue pairs an expression-valued payload with the BasisStamp that
// describes its causal content.
type StampedValue struct {
	Value Value
	Basis Stamp
}
