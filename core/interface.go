package core

import (
	"context"
)

// MessageHandler processes incoming messages for an Actor.
type MessageHandler interface {
	// HandleMessage processes a single message and returns the payload of
	// the response. The returned value is ignored when nobody waits for it.
	HandleMessage(ctx context.Context, msg *Message) (any, error)
}

// HandlerFunc adapts an ordinary function to a MessageHandler.
type HandlerFunc func(ctx context.Context, msg *Message) (any, error)

// HandleMessage calls f(ctx, msg).
func (f HandlerFunc) HandleMessage(ctx context.Context, msg *Message) (any, error) {
	return f(ctx, msg)
}

// Actor represents a computational unit that processes messages sequentially.
// Each Actor runs in its own goroutine and owns an unbounded FIFO mailbox.
type Actor interface {
	// ID returns the unique identifier of this Actor.
	ID() ActorID

	// Start begins the Actor's message processing loop.
	// It should be called only once per Actor instance.
	Start(ctx context.Context) error

	// Stop closes the mailbox, lets the loop answer everything already
	// queued and waits for it to exit.
	Stop() error

	// Send appends a message to this Actor's mailbox. It never blocks and
	// fails only when the Actor no longer accepts work.
	Send(msg *Message) error

	// Call sends a request and waits for its own response.
	Call(ctx context.Context, msg *Message) (*Message, error)

	// Stats returns current runtime statistics for this Actor.
	Stats() ActorStats
}

// ActorSystem manages the lifecycle of all Actors in the process.
type ActorSystem interface {
	// NewActor creates, registers and starts a new Actor.
	NewActor(handler MessageHandler, opts ActorOptions) (Actor, error)

	// NewService creates, registers and starts a named Actor.
	NewService(name string, handler MessageHandler, opts ActorOptions) (Actor, error)

	// GetService retrieves a service by name.
	GetService(name string) (Actor, bool)

	// Call sends a request to a named service and waits for the response payload.
	Call(ctx context.Context, service string, payload any) (any, error)

	// Shutdown stops all Actors in the system.
	Shutdown(ctx context.Context) error

	// Stats returns statistics for all Actors.
	Stats() []ActorStats
}
