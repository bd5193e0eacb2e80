// Package store implements the per-DID FIFO message store (C3).
package store

import (
	"context"

	"github.com/chriamue/didcomm-mediator/pkg/message"
)

// Endpoint describes how a Connection's owner can be reached outside the
// queue; only Internal is exercised by the dispatch core, Http is a
// forward-delivery hint carried for completeness.
type Endpoint struct {
	Internal bool
	Http     string
}

// Connection is a DID's mailbox: its delivery endpoint hint and its FIFO
// of pending messages.
type Connection struct {
	DID      string
	Endpoint Endpoint
	Messages []message.Message
}

// Store is the per-DID FIFO message store. Implementations must make
// insert/get operations atomic per DID; operations on different DIDs may
// run concurrently with no ordering guarantee between them.
type Store interface {
	// InsertMessage appends m to the FIFO of every DID in m.To, creating
	// Connections as needed.
	InsertMessage(ctx context.Context, m message.Message) error

	// InsertMessageFor appends m to the FIFO of did, creating the
	// Connection if needed.
	InsertMessageFor(ctx context.Context, did string, m message.Message) error

	// GetNext pops the front of did's FIFO. ok is false if did is unknown
	// or its queue is empty.
	GetNext(ctx context.Context, did string) (m message.Message, ok bool, err error)

	// GetMessages removes and returns the first min(n, len) messages for
	// did, in order. known is false if did has never been seen.
	GetMessages(ctx context.Context, did string, n int) (msgs []message.Message, known bool, err error)

	// Get returns a read-only snapshot of did's Connection. ok is false
	// if did is unknown.
	Get(ctx context.Context, did string) (conn Connection, ok bool, err error)
}
