/*
Package message defines the closed set of messages exchanged between
transaction coordinators and service actors, and between service actors
during propagation. Every message is a small struct
implementing the Message marker interface; Mailbox is a FIFO channel of
Message used as one actor's inbox.

Propagate fan-out to multiple importing services is built on
github.com/docker/go-events: a service actor's exports become a
Broadcaster, and each importer's Mailbox is wrapped as a Sink.
*/
package message
