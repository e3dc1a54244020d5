/*
Package coordinator implements the three short-lived client-side state
machines that drive a transaction against a service: Configurator (initial
program load and code updates), Doer (a `do` command's action expression)
and Asserter (an `assert` command's boolean expression). All three share
the same skeleton — LockRequested → AwaitingValues → PrepareRequested →
Done — driven entirely by messages exchanged with one service.Service over
its Mailbox.

A coordinator is not a long-lived actor: it runs its Run method to
completion (or until ctx is cancelled or its lock is preempted) and then
exits, like a short-lived worker goroutine. Preempt at any point after the
lock is granted aborts the transaction and returns ErrPreempted; the driver
decides whether and how to retry.
*/
package coordinator
