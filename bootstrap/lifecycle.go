package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Lifecycle errors
var (
	ErrAlreadyStarted    = errors.New("lifecycle manager already started")
	ErrAlreadyStopping   = errors.New("lifecycle manager already stopping")
	ErrDuplicateService  = errors.New("service already registered")
	ErrUnknownDependency = errors.New("dependency not registered")
	ErrDependencyCycle   = errors.New("circular dependency detected")
)

// DefaultLifecycleManager implements the LifecycleManager interface
type DefaultLifecycleManager struct {
	// services holds all registered services
	services map[string]Service

	// dependencies tracks service dependencies
	dependencies map[string][]string

	// startOrder tracks the order services were started
	startOrder []string

	mutex sync.RWMutex

	started  bool
	stopping bool

	// eventChan for broadcasting lifecycle events
	eventChan chan LifecycleEvent

	// listeners for lifecycle events, called synchronously in order
	listeners []func(LifecycleEvent)

	// timeout for each service Start and Stop
	timeout time.Duration

	logger *zap.Logger
}

// NewLifecycleManager creates a new lifecycle manager. A nil logger
// discards output.
func NewLifecycleManager(logger *zap.Logger) *DefaultLifecycleManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultLifecycleManager{
		services:     make(map[string]Service),
		dependencies: make(map[string][]string),
		eventChan:    make(chan LifecycleEvent, 100),
		timeout:      30 * time.Second,
		logger:       logger,
	}
}

// Register registers a service with the lifecycle manager
func (lm *DefaultLifecycleManager) Register(name string, service Service, deps ...string) error {
	if name == "" {
		return &ApplicationError{Operation: "register", Err: errors.New("service name cannot be empty")}
	}
	if service == nil {
		return &ApplicationError{Operation: "register", Service: name, Err: errors.New("service cannot be nil")}
	}

	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.started {
		return &ApplicationError{Operation: "register", Service: name, Err: ErrAlreadyStarted}
	}
	if _, exists := lm.services[name]; exists {
		return &ApplicationError{Operation: "register", Service: name, Err: ErrDuplicateService}
	}

	lm.services[name] = service
	lm.dependencies[name] = append([]string(nil), deps...)

	lm.broadcastEvent(LifecycleEvent{
		Type:      "service.registered",
		Service:   name,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"dependencies": deps},
	})
	return nil
}

// Start starts all services in dependency order. If one fails, the
// services already started are stopped again in reverse order.
func (lm *DefaultLifecycleManager) Start(ctx context.Context) error {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.started {
		return &ApplicationError{Operation: "start", Err: ErrAlreadyStarted}
	}

	order, err := lm.calculateStartOrder()
	if err != nil {
		return &ApplicationError{Operation: "start", Err: err}
	}

	lm.broadcastEvent(LifecycleEvent{
		Type:      "lifecycle.starting",
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"order": order},
	})

	for _, name := range order {
		lm.broadcastEvent(LifecycleEvent{Type: "service.starting", Service: name, Timestamp: time.Now()})

		startCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		err := lm.services[name].Start(startCtx)
		cancel()

		if err != nil {
			lm.broadcastEvent(LifecycleEvent{Type: "service.start_failed", Service: name, Timestamp: time.Now(), Error: err})
			rollback := lm.stopStarted(ctx)
			return errors.Join(&ApplicationError{Operation: "start", Service: name, Err: err}, rollback)
		}

		lm.startOrder = append(lm.startOrder, name)
		lm.broadcastEvent(LifecycleEvent{Type: "service.started", Service: name, Timestamp: time.Now()})
	}

	lm.started = true
	lm.broadcastEvent(LifecycleEvent{Type: "lifecycle.started", Timestamp: time.Now()})
	return nil
}

// Stop stops all services in reverse start order. Every service is asked
// to stop even if an earlier one fails; the failures are joined.
func (lm *DefaultLifecycleManager) Stop(ctx context.Context) error {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if !lm.started {
		return nil
	}
	if lm.stopping {
		return &ApplicationError{Operation: "stop", Err: ErrAlreadyStopping}
	}
	lm.stopping = true

	lm.broadcastEvent(LifecycleEvent{Type: "lifecycle.stopping", Timestamp: time.Now()})
	err := lm.stopStarted(ctx)

	lm.started = false
	lm.stopping = false
	lm.broadcastEvent(LifecycleEvent{Type: "lifecycle.stopped", Timestamp: time.Now()})
	return err
}

// stopStarted stops what is in startOrder, newest first, and clears it.
// The caller holds the mutex.
func (lm *DefaultLifecycleManager) stopStarted(ctx context.Context) error {
	var errs []error
	for i := len(lm.startOrder) - 1; i >= 0; i-- {
		name := lm.startOrder[i]
		lm.broadcastEvent(LifecycleEvent{Type: "service.stopping", Service: name, Timestamp: time.Now()})

		stopCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		err := lm.services[name].Stop(stopCtx)
		cancel()

		if err != nil {
			errs = append(errs, &ApplicationError{Operation: "stop", Service: name, Err: err})
			lm.broadcastEvent(LifecycleEvent{Type: "service.stop_failed", Service: name, Timestamp: time.Now(), Error: err})
			continue
		}
		lm.broadcastEvent(LifecycleEvent{Type: "service.stopped", Service: name, Timestamp: time.Now()})
	}
	lm.startOrder = nil
	return errors.Join(errs...)
}

// Health returns the health status of all services
func (lm *DefaultLifecycleManager) Health(ctx context.Context) (map[string]HealthStatus, error) {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	health := make(map[string]HealthStatus, len(lm.services))
	for name, service := range lm.services {
		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		status, err := service.Health(healthCtx)
		cancel()

		if err != nil {
			status = HealthStatus{State: HealthUnhealthy, Message: err.Error(), LastCheck: time.Now()}
		}
		health[name] = status
	}
	return health, nil
}

// Services returns all registered service names
func (lm *DefaultLifecycleManager) Services() []string {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	names := make([]string, 0, len(lm.services))
	for name := range lm.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Events returns a channel for lifecycle events. Events are dropped when
// nobody drains it.
func (lm *DefaultLifecycleManager) Events() <-chan LifecycleEvent {
	return lm.eventChan
}

// AddListener adds a lifecycle event listener
func (lm *DefaultLifecycleManager) AddListener(listener func(LifecycleEvent)) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	lm.listeners = append(lm.listeners, listener)
}

// SetTimeout sets the timeout for service operations
func (lm *DefaultLifecycleManager) SetTimeout(timeout time.Duration) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	lm.timeout = timeout
}

// IsStarted returns true if the lifecycle manager has been started
func (lm *DefaultLifecycleManager) IsStarted() bool {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()
	return lm.started
}

// calculateStartOrder orders services so that each starts after its
// dependencies. Ties are broken by name so the order is stable.
func (lm *DefaultLifecycleManager) calculateStartOrder() ([]string, error) {
	inDegree := make(map[string]int, len(lm.services))
	graph := make(map[string][]string, len(lm.services))

	for service := range lm.services {
		inDegree[service] = 0
	}
	for service, deps := range lm.dependencies {
		for _, dep := range deps {
			if _, exists := lm.services[dep]; !exists {
				return nil, fmt.Errorf("%w: %s needs %s", ErrUnknownDependency, service, dep)
			}
			graph[dep] = append(graph[dep], service)
			inDegree[service]++
		}
	}

	var queue []string
	for service, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, service)
		}
	}
	sort.Strings(queue)

	result := make([]string, 0, len(lm.services))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		var ready []string
		for _, dependent := range graph[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
		sort.Strings(ready)
		queue = append(queue, ready...)
	}

	if len(result) != len(lm.services) {
		return nil, ErrDependencyCycle
	}
	return result, nil
}

// broadcastEvent logs event, offers it on the event channel and calls the
// listeners. The caller holds the mutex.
func (lm *DefaultLifecycleManager) broadcastEvent(event LifecycleEvent) {
	fields := []zap.Field{zap.String("event", event.Type)}
	if event.Service != "" {
		fields = append(fields, zap.String("service", event.Service))
	}
	if event.Error != nil {
		lm.logger.Warn("lifecycle", append(fields, zap.Error(event.Error))...)
	} else {
		lm.logger.Debug("lifecycle", fields...)
	}

	select {
	case lm.eventChan <- event:
	default:
	}

	for _, listener := range lm.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					lm.logger.Error("lifecycle listener panicked", zap.Any("panic", r))
				}
			}()
			listener(event)
		}()
	}
}
