package service

import (
	"context"

	"github.com/septivank/device-registry/internal/db"
	"github.com/septivank/device-registry/internal/logging"
	"github.com/septivank/device-registry/internal/mq"
	"github.com/septivank/device-registry/internal/validator"
	"go.uber.org/zap"
)

// Store is the persistence surface the service needs. *repository.Repository
// implements it.
type Store interface {
	FindDeviceByID(ctx context.Context, deviceID string, includeDeleted bool) (*db.Device, error)
	UpsertDevice(ctx context.Context, deviceID, friendlyName string) (*db.Device, bool, error)
	RenameDevice(ctx context.Context, deviceID, friendlyName string) (*db.Device, error)
	SoftDeleteDevice(ctx context.Context, deviceID string) error
	HardDeleteDevice(ctx context.Context, deviceID string, includeDeleted bool) error

	InsertSensorReading(ctx context.Context, deviceID string, m db.Measurements) (*db.SensorReading, error)
	ListReadingsForDevice(ctx context.Context, deviceID string) ([]db.SensorReading, error)

	CreateGroup(ctx context.Context, name string) (*db.Group, error)
	RenameGroup(ctx context.Context, oldName, newName string) (*db.Group, error)
	SoftDeleteGroup(ctx context.Context, name string) (*db.Group, error)
	ListGroupsWithDevices(ctx context.Context) ([]db.GroupWithDevices, error)
	AddDeviceToGroup(ctx context.Context, groupName, deviceID string) (*db.DeviceGroup, error)
	HardDeleteGroup(ctx context.Context, name string) (*db.Group, error)
}

// EventPublisher receives registry change events
type EventPublisher interface {
	PublishRegistryEvent(ctx context.Context, event mq.RegistryEvent) error
}

// ReadingMirror receives every stored reading
type ReadingMirror interface {
	WriteReading(reading db.SensorReading)
}

// RegistryService validates requests, calls the store and maps outcomes to
// result kinds
type RegistryService struct {
	store     Store
	publisher EventPublisher
	mirror    ReadingMirror
	validator *validator.Validator
	logger    *zap.Logger
}

// NewRegistryService creates a new registry service
func NewRegistryService(
	store Store,
	publisher EventPublisher,
	mirror ReadingMirror,
	validator *validator.Validator,
	logger *zap.Logger,
) *RegistryService {
	return &RegistryService{
		store:     store,
		publisher: publisher,
		mirror:    mirror,
		validator: validator,
		logger:    logger,
	}
}

// publish sends an event after a committed change. Failures are logged and
// never change the caller's result.
func (s *RegistryService) publish(ctx context.Context, event mq.RegistryEvent) {
	if err := s.publisher.PublishRegistryEvent(ctx, event); err != nil {
		logging.FromContext(ctx, s.logger).Error("failed to publish event",
			zap.Error(err),
			zap.String("type", string(event.Type)),
		)
	}
}

func (s *RegistryService) newEvent(ctx context.Context, eventType mq.EventType) mq.RegistryEvent {
	return mq.NewRegistryEvent(eventType, logging.RequestIDFromContext(ctx))
}
