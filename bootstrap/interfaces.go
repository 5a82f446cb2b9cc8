// Package bootstrap starts long-lived services in dependency order and
// stops them in reverse.
package bootstrap

import (
	"context"
	"fmt"
	"time"
)

// Service is a component with a managed lifetime.
type Service interface {
	Name() string
	// Start must return once the service is usable. Work that outlives
	// Start runs on goroutines the service owns.
	Start(ctx context.Context) error
	// Stop releases the service. It is called at most once per Start.
	Stop(ctx context.Context) error
	Health(ctx context.Context) (HealthStatus, error)
}

// HealthStatus is a point-in-time health report.
type HealthStatus struct {
	State     HealthState            `json:"state"`
	Message   string                 `json:"message,omitempty"`
	LastCheck time.Time              `json:"last_check,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// HealthState classifies a HealthStatus.
type HealthState string

const (
	HealthStarting  HealthState = "starting"
	HealthHealthy   HealthState = "healthy"
	HealthUnhealthy HealthState = "unhealthy"
	// HealthCritical means the service will not recover without a restart.
	HealthCritical HealthState = "critical"
	HealthStopping HealthState = "stopping"
	HealthStopped  HealthState = "stopped"
)

// OK reports whether the service can take work.
func (s HealthState) OK() bool {
	return s == HealthHealthy
}

// LifecycleManager orders the start and stop of registered services.
type LifecycleManager interface {
	Register(name string, service Service, deps ...string) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) (map[string]HealthStatus, error)
	Services() []string
	Events() <-chan LifecycleEvent
	AddListener(listener func(LifecycleEvent))
}

// Application runs a set of services until it is told to stop.
type Application interface {
	Register(name string, service Service, deps ...string) error
	// Run blocks until ctx is done or a termination signal arrives, then
	// shuts down.
	Run(ctx context.Context) error
	Shutdown(ctx context.Context) error
	LifecycleManager() LifecycleManager
}

var (
	_ LifecycleManager = (*DefaultLifecycleManager)(nil)
	_ Application      = (*DefaultApplication)(nil)
)

// LifecycleEvent is broadcast on every registration and state change.
type LifecycleEvent struct {
	Type      string                 `json:"type"`
	Service   string                 `json:"service,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Error     error                  `json:"error,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// ApplicationError ties a lifecycle failure to its operation and service.
type ApplicationError struct {
	Operation string
	Service   string
	Err       error
}

func (e *ApplicationError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("%s failed for service %s: %v", e.Operation, e.Service, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}
