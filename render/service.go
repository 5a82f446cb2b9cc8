// Package render owns the process-wide layout engine. A single actor holds
// the pretty.Arena and formats values one at a time in arrival order, so any
// number of goroutines can render without sharing the arena.
package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/calypso-lang/calypso-bot/bootstrap"
	"github.com/calypso-lang/calypso-bot/core"
	"github.com/calypso-lang/calypso-bot/pretty"
	"github.com/calypso-lang/calypso-bot/sysf"
)

// ServiceName is the actor-system name of the rendering service.
const ServiceName = "renderer"

// DefaultWidth is the line width used when none is configured.
const DefaultWidth = 80

var (
	// ErrUnknownValue is returned for a payload that is not a Value.
	ErrUnknownValue = errors.New("render: unknown value kind")
	// ErrNotQueued is returned by Await for a request that was never enqueued.
	ErrNotQueued = errors.New("render: request was not enqueued")
)

// Request is one rendering job. It carries its own single-use reply slot;
// a Request must not be enqueued twice.
type Request struct {
	msg    *core.Message
	queued bool
}

// NewRequest wraps v in a request with a fresh reply slot.
func NewRequest(v Value) *Request {
	return &Request{msg: core.NewRequest(v)}
}

// Value returns the value this request renders.
func (r *Request) Value() Value {
	v, _ := r.msg.Payload.(Value)
	return v
}

// Option configures a Service.
type Option func(*Service)

// WithWidth sets the target line width.
func WithWidth(width int) Option {
	return func(s *Service) {
		if width > 0 {
			s.width = width
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBuilder replaces the document builders.
func WithBuilder(b Builder) Option {
	return func(s *Service) {
		if b != nil {
			s.builder = b
		}
	}
}

// Service is the rendering actor.
type Service struct {
	actor   core.Actor
	arena   *pretty.Arena // touched only from the actor goroutine
	builder Builder
	width   int
	logger  *zap.Logger
}

// New creates the rendering service and starts its actor in sys.
func New(sys core.ActorSystem, opts ...Option) (*Service, error) {
	s := &Service{
		arena:   pretty.NewArena(),
		builder: sysf.Engine{},
		width:   DefaultWidth,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	actor, err := sys.NewService(ServiceName, core.HandlerFunc(s.handle), core.DefaultActorOptions())
	if err != nil {
		return nil, fmt.Errorf("render: start service: %w", err)
	}
	s.actor = actor
	s.logger.Debug("rendering service started", zap.Int("width", s.width))
	return s, nil
}

func (s *Service) handle(_ context.Context, msg *core.Message) (any, error) {
	v, ok := msg.Payload.(Value)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnknownValue, msg.Payload)
	}
	defer s.arena.Reset()

	doc, err := build(s.builder, s.arena, v)
	if err != nil {
		return nil, err
	}
	return s.arena.Pretty(doc, s.width), nil
}

// Enqueue appends req to the service mailbox. It never blocks; it fails only
// once the service no longer accepts work.
func (s *Service) Enqueue(req *Request) error {
	if req == nil {
		return core.ErrNilMessage
	}
	if err := s.actor.Send(req.msg); err != nil {
		return err
	}
	req.queued = true
	return nil
}

// Await blocks until req has been rendered or ctx is done. Abandoning a
// request is safe: its reply slot is never read by anyone else.
func (s *Service) Await(ctx context.Context, req *Request) (string, error) {
	if !req.queued {
		return "", ErrNotQueued
	}
	select {
	case resp := <-req.msg.Reply:
		if resp.Type == core.MessageTypeError {
			return "", resp.Err
		}
		text, _ := resp.Payload.(string)
		return text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Render enqueues v and waits for its text.
func (s *Service) Render(ctx context.Context, v Value) (string, error) {
	req := NewRequest(v)
	if err := s.Enqueue(req); err != nil {
		return "", err
	}
	return s.Await(ctx, req)
}

// Width reports the configured line width.
func (s *Service) Width() int { return s.width }

// Stats returns the actor's runtime statistics.
func (s *Service) Stats() core.ActorStats { return s.actor.Stats() }

// Name implements bootstrap.Service.
func (s *Service) Name() string { return ServiceName }

// Start implements bootstrap.Service. The actor already runs once New returns.
func (s *Service) Start(context.Context) error { return nil }

// Stop closes the mailbox and waits until every queued request is answered.
func (s *Service) Stop(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.actor.Stop() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health implements bootstrap.Service.
func (s *Service) Health(context.Context) (bootstrap.HealthStatus, error) {
	st := s.actor.Stats()
	status := bootstrap.HealthStatus{
		State:     bootstrap.HealthHealthy,
		LastCheck: time.Now(),
		Data: map[string]interface{}{
			"processed":   st.MessagesProcessed,
			"queue_depth": st.MailboxSize,
			"state":       st.State.String(),
		},
	}
	switch st.State {
	case core.ActorStateFailed:
		status.State = bootstrap.HealthCritical
		status.Message = "formatter panicked; rendering is unavailable"
	case core.ActorStateStopping:
		status.State = bootstrap.HealthStopping
	case core.ActorStateStopped:
		status.State = bootstrap.HealthStopped
	}
	return status, nil
}
