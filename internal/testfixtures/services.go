package testfixtures

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/training-erp/internal/application"
	"github.com/example/training-erp/internal/events"
	"github.com/example/training-erp/internal/persistence"
	"github.com/example/training-erp/internal/provisioning"
	"github.com/example/training-erp/internal/scheduler"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// SessionServiceDeps captures the optional collaborators of a session service.
type SessionServiceDeps struct {
	Publisher events.Publisher
	Location  *time.Location
	Rules     *provisioning.Rules
	Logger    *slog.Logger
}

// NewSessionService builds a session service over store using the factory's
// identifiers and clock.
func (f *ServiceFactory) NewSessionService(store persistence.Store, deps SessionServiceDeps) *application.SessionService {
	rules := provisioning.DefaultRules()
	if deps.Rules != nil {
		rules = *deps.Rules
	}
	location := deps.Location
	if location == nil {
		location = time.UTC
	}
	idGen := f.IDGenerator.NextFunc()
	now := f.Clock.NowFunc()
	return application.NewSessionService(application.SessionServiceDeps{
		Store:       store,
		Reconciler:  provisioning.NewReconciler(store, rules, idGen, now),
		Finder:      scheduler.NewFinder(3),
		Publisher:   deps.Publisher,
		IDGenerator: idGen,
		Now:         now,
		Location:    location,
		Logger:      deps.Logger,
	})
}

// NewDealService builds a deal service over store.
func (f *ServiceFactory) NewDealService(store persistence.Store, logger *slog.Logger) *application.DealService {
	return application.NewDealService(store, provisioning.DefaultRules(), f.IDGenerator.NextFunc(), f.Clock.NowFunc(), logger)
}

// NewResourceService builds a resource service over store.
func (f *ServiceFactory) NewResourceService(store persistence.Store, logger *slog.Logger) *application.ResourceService {
	return application.NewResourceService(store, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), logger)
}

// EventRecorder is a publisher that keeps every event in memory. When Err is
// set, Publish records nothing and returns it.
type EventRecorder struct {
	mu     sync.Mutex
	events []events.Event
	Err    error
}

// Publish records the event.
func (r *EventRecorder) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

// Close implements events.Publisher.
func (r *EventRecorder) Close() error { return nil }

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *EventRecorder) Types() []events.Type {
	recorded := r.Events()
	out := make([]events.Type, 0, len(recorded))
	for _, event := range recorded {
		out = append(out, event.Type)
	}
	return out
}
