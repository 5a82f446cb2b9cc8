package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/calypso-lang/calypso-bot/core"
)

// ErrAlreadyRunning is returned by Run on an application that is running.
var ErrAlreadyRunning = errors.New("application is already running")

// AppOption configures a DefaultApplication.
type AppOption func(*DefaultApplication)

// WithLogger sets the application logger.
func WithLogger(logger *zap.Logger) AppOption {
	return func(app *DefaultApplication) {
		if logger != nil {
			app.logger = logger
		}
	}
}

// WithShutdownTimeout bounds the graceful shutdown.
func WithShutdownTimeout(d time.Duration) AppOption {
	return func(app *DefaultApplication) {
		if d > 0 {
			app.shutdownTimeout = d
		}
	}
}

// WithSignals replaces the signals that trigger shutdown. No signals means
// only the context stops Run.
func WithSignals(sigs ...os.Signal) AppOption {
	return func(app *DefaultApplication) {
		app.signals = sigs
	}
}

// DefaultApplication implements the Application interface
type DefaultApplication struct {
	lifecycleManager *DefaultLifecycleManager
	logger           *zap.Logger
	signals          []os.Signal
	shutdownTimeout  time.Duration

	mutex   sync.Mutex
	running bool
}

// NewApplication creates an application that stops on SIGINT or SIGTERM.
func NewApplication(opts ...AppOption) *DefaultApplication {
	app := &DefaultApplication{
		logger:          zap.NewNop(),
		signals:         []os.Signal{os.Interrupt, syscall.SIGTERM},
		shutdownTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(app)
	}
	app.lifecycleManager = NewLifecycleManager(app.logger)
	return app
}

// Register adds a service that starts after deps.
func (app *DefaultApplication) Register(name string, service Service, deps ...string) error {
	return app.lifecycleManager.Register(name, service, deps...)
}

// Run starts all services, waits for ctx or a signal, then shuts down.
func (app *DefaultApplication) Run(ctx context.Context) error {
	app.mutex.Lock()
	if app.running {
		app.mutex.Unlock()
		return ErrAlreadyRunning
	}
	app.running = true
	app.mutex.Unlock()

	if len(app.signals) > 0 {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, app.signals...)
		defer stop()
	}

	if err := app.lifecycleManager.Start(ctx); err != nil {
		app.mutex.Lock()
		app.running = false
		app.mutex.Unlock()
		return fmt.Errorf("failed to start services: %w", err)
	}
	app.logger.Info("application started", zap.Strings("services", app.lifecycleManager.Services()))

	<-ctx.Done()
	app.logger.Info("starting graceful shutdown", zap.NamedError("cause", context.Cause(ctx)))

	return app.Shutdown(context.WithoutCancel(ctx))
}

// Shutdown stops every service within the shutdown timeout.
func (app *DefaultApplication) Shutdown(ctx context.Context) error {
	app.mutex.Lock()
	if !app.running {
		app.mutex.Unlock()
		return nil
	}
	app.running = false
	app.mutex.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, app.shutdownTimeout)
	defer cancel()

	if err := app.lifecycleManager.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop services: %w", err)
	}
	app.logger.Info("application stopped")
	return nil
}

// LifecycleManager returns the lifecycle manager
func (app *DefaultApplication) LifecycleManager() LifecycleManager {
	return app.lifecycleManager
}

// ActorSystemService manages an actor system as a service. Stopping it
// shuts down every actor, letting each drain its mailbox.
type ActorSystemService struct {
	system core.ActorSystem
}

// NewActorSystemService wraps sys.
func NewActorSystemService(sys core.ActorSystem) *ActorSystemService {
	return &ActorSystemService{system: sys}
}

func (s *ActorSystemService) Name() string {
	return "actor-system"
}

func (s *ActorSystemService) Start(context.Context) error {
	return nil
}

func (s *ActorSystemService) Stop(ctx context.Context) error {
	return s.system.Shutdown(ctx)
}

// Health is critical when any actor has failed.
func (s *ActorSystemService) Health(context.Context) (HealthStatus, error) {
	stats := s.system.Stats()
	status := HealthStatus{
		State:     HealthHealthy,
		Message:   "Actor system running",
		LastCheck: time.Now(),
		Data:      map[string]interface{}{"actors": len(stats)},
	}

	var failed []string
	for _, st := range stats {
		if st.State == core.ActorStateFailed {
			failed = append(failed, st.Name)
		}
	}
	if len(failed) > 0 {
		status.State = HealthCritical
		status.Message = "actors failed"
		status.Data["failed"] = failed
	}
	return status, nil
}
