package txid

import "testing"

func TestLessPriorityDominates(t *testing.T) {
	old := TxId{Priority: High, Timestamp: 100, CoordinatorID: "b"}
	young := TxId{Priority: Low, Timestamp: 1, CoordinatorID: "a"}
	if !Less(old, young) {
		t.Fatal("High priority with larger timestamp should still be older than Low priority")
	}
	if Less(young, old) {
		t.Fatal("young should not be Less than old")
	}
}

func TestLessTimestampTiebreak(t *testing.T) {
	a := TxId{Priority: Low, Timestamp: 5, CoordinatorID: "x"}
	b := TxId{Priority: Low, Timestamp: 10, CoordinatorID: "x"}
	if !Less(a, b) {
		t.Fatal("a should be older (smaller timestamp)")
	}
}

func TestLessCoordinatorTiebreak(t *testing.T) {
	a := TxId{Priority: Low, Timestamp: 5, CoordinatorID: "a"}
	b := TxId{Priority: Low, Timestamp: 5, CoordinatorID: "b"}
	if !Less(a, b) {
		t.Fatal("a should be older (lexicographically smaller coordinator id)")
	}
}

func TestLockConflicts(t *testing.T) {
	if Shared.Conflicts(Shared) {
		t.Error("two shared locks should not conflict")
	}
	if !Shared.Conflicts(Exclusive) {
		t.Error("shared vs exclusive should conflict")
	}
	if !Exclusive.Conflicts(Exclusive) {
		t.Error("two exclusive locks should conflict")
	}
}

func TestClockStrictlyIncreasing(t *testing.T) {
	c := NewClock()
	prev := c.Now()
	for i := 0; i < 10000; i++ {
		next := c.Now()
		if next <= prev {
			t.Fatalf("Now() = %d, want strictly greater than previous %d", next, prev)
		}
		prev = next
	}
}
