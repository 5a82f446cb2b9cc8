package core

import (
	"time"
)

// ActorID represents a unique identifier for an Actor.
type ActorID uint32

// MessageType defines the type of message being sent.
type MessageType uint8

// Message represents communication data between Actors.
type Message struct {
	// ID is a unique identifier for this message
	ID uint64

	// Type indicates the message category
	Type MessageType

	// Source is the ID of the sending Actor (zero for callers outside the system)
	Source ActorID

	// Target is the ID of the receiving Actor
	Target ActorID

	// Session correlates a response with the request it answers
	Session uint32

	// Payload contains the actual message value
	Payload any

	// Reply receives the single response to this message. It is owned by the
	// sender, must have capacity for one message and is never shared between
	// requests. A nil Reply means no response is wanted.
	Reply chan *Message

	// Err carries the failure of a MessageTypeError response
	Err error

	// Timestamp when the message was created
	Timestamp time.Time
}

// NewRequest creates a request message with its own single-use reply channel.
func NewRequest(payload any) *Message {
	return &Message{
		Type:      MessageTypeRequest,
		Payload:   payload,
		Reply:     make(chan *Message, 1),
		Timestamp: time.Now(),
	}
}

// ActorState represents the current state of an Actor.
type ActorState uint8

const (
	// ActorStateIdle means the Actor is waiting for messages
	ActorStateIdle ActorState = iota

	// ActorStateRunning means the Actor is processing a message
	ActorStateRunning

	// ActorStateStopping means the Actor is draining its mailbox before exit
	ActorStateStopping

	// ActorStateStopped means the Actor has been stopped
	ActorStateStopped

	// ActorStateFailed means the handler panicked; the Actor accepts no more work
	ActorStateFailed
)

// String returns the string representation of ActorState.
func (s ActorState) String() string {
	switch s {
	case ActorStateIdle:
		return "idle"
	case ActorStateRunning:
		return "running"
	case ActorStateStopping:
		return "stopping"
	case ActorStateStopped:
		return "stopped"
	case ActorStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	// MessageTypeText for fire-and-forget messages
	MessageTypeText MessageType = iota

	// MessageTypeResponse for response messages
	MessageTypeResponse

	// MessageTypeRequest for request messages
	MessageTypeRequest

	// MessageTypeError for error responses
	MessageTypeError
)

// String returns the string representation of MessageType.
func (t MessageType) String() string {
	switch t {
	case MessageTypeText:
		return "text"
	case MessageTypeResponse:
		return "response"
	case MessageTypeRequest:
		return "request"
	case MessageTypeError:
		return "error"
	default:
		return "unknown"
	}
}

// ActorOptions contains configuration options for creating an Actor.
type ActorOptions struct {
	// Name is a human-readable name for the Actor
	Name string

	// InitialMailboxCapacity preallocates queue space. The mailbox grows
	// without bound past it; senders never block.
	InitialMailboxCapacity int
}

// DefaultActorOptions returns sensible default options.
func DefaultActorOptions() ActorOptions {
	return ActorOptions{
		Name:                   "",
		InitialMailboxCapacity: 64,
	}
}

// ActorStats contains runtime statistics for an Actor.
type ActorStats struct {
	// ID of the Actor
	ID ActorID

	// Name of the Actor
	Name string

	// Current state
	State ActorState

	// Total messages processed
	MessagesProcessed uint64

	// Messages currently in mailbox
	MailboxSize int

	// Time when Actor was created
	CreatedAt time.Time

	// Last message processing time
	LastMessageAt time.Time
}
