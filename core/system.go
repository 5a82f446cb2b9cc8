package core

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// SystemOption configures an ActorSystem.
type SystemOption func(*system)

// WithLogger sets the logger handed to every Actor of the system.
func WithLogger(logger *zap.Logger) SystemOption {
	return func(s *system) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// system implements the ActorSystem interface.
type system struct {
	dir    *directory
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewActorSystem creates a new ActorSystem instance.
func NewActorSystem(opts ...SystemOption) ActorSystem {
	s := &system{
		dir:    newDirectory(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewActor creates, registers and starts a new Actor.
func (s *system) NewActor(handler MessageHandler, opts ActorOptions) (Actor, error) {
	return s.spawn("", handler, opts)
}

// NewService creates, registers and starts a named Actor.
func (s *system) NewService(name string, handler MessageHandler, opts ActorOptions) (Actor, error) {
	if name == "" {
		return nil, fmt.Errorf("service name cannot be empty")
	}
	if opts.Name == "" {
		opts.Name = name
	}
	actor, err := s.spawn(name, handler, opts)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", name, err)
	}
	return actor, nil
}

func (s *system) spawn(name string, handler MessageHandler, opts ActorOptions) (Actor, error) {
	// Held for reading so Shutdown cannot miss an actor being spawned.
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrSystemShutdown
	}
	if handler == nil {
		return nil, fmt.Errorf("cannot spawn actor without a handler")
	}
	if opts.InitialMailboxCapacity == 0 {
		opts.InitialMailboxCapacity = DefaultActorOptions().InitialMailboxCapacity
	}

	id := s.dir.allocate()
	actor := NewActor(id, handler, opts, s.logger)
	if err := s.dir.add(actor, name); err != nil {
		return nil, err
	}

	if err := actor.Start(context.Background()); err != nil {
		_ = s.dir.remove(id)
		return nil, fmt.Errorf("failed to start actor: %w", err)
	}

	s.logger.Debug("actor started", zap.Uint32("actor", uint32(id)), zap.String("actor_name", opts.Name))
	return actor, nil
}

// GetService retrieves a service by name.
func (s *system) GetService(name string) (Actor, bool) {
	return s.dir.named(name)
}

// Call sends a request to a named service and waits for its response payload.
func (s *system) Call(ctx context.Context, service string, payload any) (any, error) {
	target, exists := s.GetService(service)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, service)
	}

	resp, err := target.Call(ctx, NewRequest(payload))
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// Shutdown stops all Actors in the system in creation order. Each Actor
// answers its queued requests before the next one is stopped.
func (s *system) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, actor := range s.dir.actors() {
			if err := actor.Stop(); err != nil {
				s.logger.Warn("actor stop failed", zap.Uint32("actor", uint32(actor.ID())), zap.Error(err))
			}
		}
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns statistics for all Actors, oldest first.
func (s *system) Stats() []ActorStats {
	actors := s.dir.actors()
	stats := make([]ActorStats, 0, len(actors))
	for _, actor := range actors {
		stats = append(stats, actor.Stats())
	}
	return stats
}
