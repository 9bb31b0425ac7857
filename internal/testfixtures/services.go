package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/capture-scheduler/internal/application"
	"github.com/example/capture-scheduler/internal/recurrence"
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

func (f *ServiceFactory) idGen(override func() string) func() string {
	if override != nil {
		return override
	}
	return f.IDGenerator.NextFunc()
}

func (f *ServiceFactory) now(override func() time.Time) func() time.Time {
	if override != nil {
		return override
	}
	return f.Clock.NowFunc()
}

// CrossListingServiceDeps captures dependencies for constructing a cross-listing service.
type CrossListingServiceDeps struct {
	Roster      application.RosterSource
	Store       application.CrossListingStore
	ChunkSize   int
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewCrossListingService builds a cross-listing service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewCrossListingService(deps CrossListingServiceDeps) *application.CrossListingService {
	return application.NewCrossListingServiceWithLogger(
		deps.Roster,
		deps.Store,
		deps.ChunkSize,
		f.idGen(deps.IDGenerator),
		f.now(deps.Now),
		deps.Logger,
	)
}

// RoomServiceDeps captures dependencies for constructing a room service.
type RoomServiceDeps struct {
	Rooms     application.RoomDirectory
	Locations application.LocationSource
	Resources application.ResourceDirectory
	Now       func() time.Time
	Logger    *slog.Logger
}

// NewRoomService builds a room service using the supplied dependencies.
func (f *ServiceFactory) NewRoomService(deps RoomServiceDeps) *application.RoomService {
	return application.NewRoomServiceWithLogger(deps.Rooms, deps.Locations, deps.Resources, f.now(deps.Now), deps.Logger)
}

// RecordingServiceDeps captures dependencies for constructing a recording service.
type RecordingServiceDeps struct {
	application.RecordingDependencies
	Config      application.RecordingConfig
	Location    *time.Location
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewRecordingService builds a recording service. A nil Location expands
// recurrences in UTC.
func (f *ServiceFactory) NewRecordingService(deps RecordingServiceDeps) *application.RecordingService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return application.NewRecordingServiceWithLogger(
		deps.RecordingDependencies,
		deps.Config,
		recurrence.NewEngine(loc),
		f.idGen(deps.IDGenerator),
		f.now(deps.Now),
		deps.Logger,
	)
}
