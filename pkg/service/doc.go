/*
Package service implements the per-service actor: a single-threaded owner
of a set of reactive.Cell values, the lock queue, held-lock state, the
subscription/import/export graph, topological order, root-set cache and
propagation fan-out.

A Service is driven entirely by messages read off its Mailbox from Run; it
never shares memory with another Service. Protocol violations (write
without an exclusive lock, a second Lock for an already-locked
transaction, a read issued while one is still pending, and similar
coordinator bugs) panic; Run recovers the panic, logs it, and reports the
actor as dead so the supervising errgroup can end the program.
*/
package service
