/*
Package txid implements the transaction identifier and wait-die ordering
used by every lock request in Meerkat: TxId is a (Priority, Timestamp,
CoordinatorID) triple with a strict total order, smaller meaning older,
and older always wins a conflicting lock.

Clock is the monotonic timestamp generator backing Timestamp: wall-clock
microseconds, clamped to strictly increase on every call even across a
backward clock jump.
*/
package txid
