package txid

import "fmt"

// Priority is the coarse half of wait-die ordering: High-priority
// transactions (typically assertions and short reads) are considered older
// than every Low-priority transaction regardless of timestamp.
type Priority int

const (
	High Priority = iota
	Low
)

func (p Priority) String() string {
	if p == High {
		return "high"
	}
	return "low"
}

// TxId identifies a transaction with a strict total order: Priority, then
// Timestamp, then CoordinatorID (lexicographic). Smaller is older, and
// older always wins a conflicting lock under wait-die.
//
// Retry is not part of the order below; it exists only so an implementer
// who wires automatic retry has somewhere to record which attempt this is.
// Meerkat does not wire automatic retry: Preempt always ends in Abort.
type TxId struct {
	Priority      Priority
	Timestamp     uint64
	CoordinatorID string
	Retry         uint64
}

// Less reports whether a is strictly older than b under wait-die order.
func Less(a, b TxId) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.CoordinatorID < b.CoordinatorID
}

func (t TxId) String() string {
	return fmt.Sprintf("%s-%d-%s", t.Priority, t.Timestamp, t.CoordinatorID)
}

// Lock is the kind of a held or requested lock.
type Lock int

const (
	Shared Lock = iota
	Exclusive
)

func (l Lock) String() string {
	if l == Shared {
		return "shared"
	}
	return "exclusive"
}

// Conflicts reports whether two lock kinds held or requested by different
// transactions conflict. Two Shared locks never conflict; anything
// involving an Exclusive does.
func (l Lock) Conflicts(other Lock) bool {
	return l == Exclusive || other == Exclusive
}
