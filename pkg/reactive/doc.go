/*
Package reactive implements the per-name reactive cell: a Variable holding a
stamped value set by writes, or a Definition holding per-input update queues
and the batch-discovery search that finds the next causally-coherent set of
input updates to recompute from.

# Batch discovery

A Definition D has one FIFO queue per input. `NextValue` searches for the
smallest set of queued updates — at least one per "seed" candidate input —
such that, once consumed, every input's resulting basis dominates the merged
batch basis on that input's own root set. This is the
mechanism that lets Meerkat emit exactly one recomputation per
causally-coherent set of writes instead of one recomputation per individual
input update (a single `{ x <- 1, y <- 1 }` action
produces one `z` recompute, not two).
*/
package reactive
