package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var messageCounter uint64

func nextMessageID() uint64 {
	return atomic.AddUint64(&messageCounter, 1)
}

// actor implements the Actor interface.
type actor struct {
	id      ActorID
	name    string
	handler MessageHandler
	logger  *zap.Logger

	mailbox *mailbox

	// Context handed to the handler; cancelled once the loop has exited
	ctx    context.Context
	cancel context.CancelFunc

	// done is closed when the message loop returns
	done    chan struct{}
	started int32

	// Atomic counters for statistics
	state             int32 // ActorState
	messagesProcessed uint64
	createdAt         time.Time
	lastMessageAt     int64 // Unix nanoseconds

	sessionCounter uint32
}

// NewActor creates a new Actor instance. A nil logger discards output.
func NewActor(id ActorID, handler MessageHandler, opts ActorOptions, logger *zap.Logger) Actor {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &actor{
		id:        id,
		name:      opts.Name,
		handler:   handler,
		logger:    logger.With(zap.Uint32("actor", uint32(id)), zap.String("actor_name", opts.Name)),
		mailbox:   newMailbox(opts.InitialMailboxCapacity),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}

	atomic.StoreInt32(&a.state, int32(ActorStateIdle))

	return a
}

// ID returns the unique identifier of this Actor.
func (a *actor) ID() ActorID {
	return a.id
}

// Start begins the Actor's message processing loop.
func (a *actor) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&a.started, 0, 1) {
		return fmt.Errorf("actor %d: %w", a.id, ErrAlreadyStarted)
	}

	go a.messageLoop()

	return nil
}

// Stop closes the mailbox and waits for the loop to answer what is queued.
func (a *actor) Stop() error {
	for {
		current := ActorState(atomic.LoadInt32(&a.state))
		switch current {
		case ActorStateStopped:
			return nil
		case ActorStateFailed:
			a.mailbox.Close()
			a.waitLoop()
			return nil
		}
		if atomic.CompareAndSwapInt32(&a.state, int32(current), int32(ActorStateStopping)) {
			break
		}
	}

	a.mailbox.Close()
	a.waitLoop()

	// A panic while draining leaves the actor Failed.
	atomic.CompareAndSwapInt32(&a.state, int32(ActorStateStopping), int32(ActorStateStopped))
	return nil
}

func (a *actor) waitLoop() {
	if atomic.LoadInt32(&a.started) == 0 {
		// Never started: answer anything queued ourselves.
		for _, msg := range a.mailbox.Drain() {
			a.reply(msg, nil, fmt.Errorf("actor %d: %w", a.id, ErrActorStopped))
		}
		a.cancel()
		return
	}
	<-a.done
}

// Send appends a message to this Actor's mailbox without blocking.
func (a *actor) Send(msg *Message) error {
	if msg == nil {
		return ErrNilMessage
	}

	currentState := ActorState(atomic.LoadInt32(&a.state))
	switch currentState {
	case ActorStateFailed:
		return fmt.Errorf("actor %d: %w", a.id, ErrActorFailed)
	case ActorStateStopping, ActorStateStopped:
		return fmt.Errorf("actor %d (state: %s): %w", a.id, currentState, ErrActorStopped)
	}

	if msg.Type == MessageTypeRequest && cap(msg.Reply) == 0 {
		return ErrNoReplyChannel
	}

	if msg.ID == 0 {
		msg.ID = nextMessageID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	msg.Target = a.id

	if !a.mailbox.Push(msg) {
		if ActorState(atomic.LoadInt32(&a.state)) == ActorStateFailed {
			return fmt.Errorf("actor %d: %w", a.id, ErrActorFailed)
		}
		return fmt.Errorf("actor %d: %w", a.id, ErrActorStopped)
	}
	return nil
}

// Call sends a request and waits for its response on the request's own
// reply channel.
func (a *actor) Call(ctx context.Context, msg *Message) (*Message, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}
	if msg.Reply == nil {
		msg.Reply = make(chan *Message, 1)
	}
	msg.Type = MessageTypeRequest
	msg.Session = atomic.AddUint32(&a.sessionCounter, 1)

	if err := a.Send(msg); err != nil {
		return nil, err
	}

	select {
	case resp := <-msg.Reply:
		if resp.Type == MessageTypeError {
			return resp, resp.Err
		}
		return resp, nil
	case <-ctx.Done():
		// The reply channel is buffered; the late answer is dropped with it.
		return nil, ctx.Err()
	}
}

// Stats returns current runtime statistics for this Actor.
func (a *actor) Stats() ActorStats {
	lastMsg := atomic.LoadInt64(&a.lastMessageAt)
	var lastMessageAt time.Time
	if lastMsg > 0 {
		lastMessageAt = time.Unix(0, lastMsg)
	}

	return ActorStats{
		ID:                a.id,
		Name:              a.name,
		State:             ActorState(atomic.LoadInt32(&a.state)),
		MessagesProcessed: atomic.LoadUint64(&a.messagesProcessed),
		MailboxSize:       a.mailbox.Len(),
		CreatedAt:         a.createdAt,
		LastMessageAt:     lastMessageAt,
	}
}

// messageLoop is the main processing loop for the Actor. It exits when the
// mailbox is closed and empty, or after the handler panics.
func (a *actor) messageLoop() {
	defer close(a.done)
	defer a.cancel()

	for {
		msg, ok := a.mailbox.Pop()
		if !ok {
			return
		}
		if !a.processMessage(msg) {
			a.fail()
			return
		}
	}
}

// processMessage handles a single message. It reports false when the
// handler panicked.
func (a *actor) processMessage(msg *Message) (ok bool) {
	atomic.CompareAndSwapInt32(&a.state, int32(ActorStateIdle), int32(ActorStateRunning))
	defer atomic.CompareAndSwapInt32(&a.state, int32(ActorStateRunning), int32(ActorStateIdle))

	atomic.AddUint64(&a.messagesProcessed, 1)
	atomic.StoreInt64(&a.lastMessageAt, time.Now().UnixNano())

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("actor handler panicked, actor is now failed",
				zap.Any("panic", r),
				zap.Uint64("message", msg.ID),
			)
			atomic.StoreInt32(&a.state, int32(ActorStateFailed))
			a.reply(msg, nil, fmt.Errorf("actor %d: %w: %v", a.id, ErrActorFailed, r))
			ok = false
		}
	}()

	payload, err := a.handler.HandleMessage(a.ctx, msg)
	a.reply(msg, payload, err)
	return true
}

// fail marks the actor failed and answers everything still queued.
func (a *actor) fail() {
	atomic.StoreInt32(&a.state, int32(ActorStateFailed))
	a.mailbox.Close()
	for _, msg := range a.mailbox.Drain() {
		a.reply(msg, nil, fmt.Errorf("actor %d: %w", a.id, ErrActorFailed))
	}
}

// reply answers msg on its own reply channel, if it has one.
func (a *actor) reply(msg *Message, payload any, err error) {
	if msg.Reply == nil {
		if err != nil {
			a.logger.Warn("message failed without a reply channel",
				zap.Uint64("message", msg.ID),
				zap.Error(err),
			)
		}
		return
	}

	resp := &Message{
		ID:        nextMessageID(),
		Type:      MessageTypeResponse,
		Source:    a.id,
		Target:    msg.Source,
		Session:   msg.Session,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	if err != nil {
		resp.Type = MessageTypeError
		resp.Err = err
	}

	select {
	case msg.Reply <- resp:
	default:
		// Reply slot already used; the request was answered once.
		a.logger.Warn("dropping duplicate reply", zap.Uint64("message", msg.ID))
	}
}
