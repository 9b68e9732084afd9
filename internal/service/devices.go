package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/septivank/device-registry/internal/db"
	"github.com/septivank/device-registry/internal/logging"
	"github.com/septivank/device-registry/internal/mq"
	"github.com/septivank/device-registry/internal/repository"
	"github.com/septivank/device-registry/internal/validator"
	"go.uber.org/zap"
)

const msgDeviceNotFound = "Device not found"

// RegisterDevice creates a device, or updates and reactivates an existing one
func (s *RegistryService) RegisterDevice(ctx context.Context, req db.AddDeviceRequest) (Result, error) {
	if res := s.validator.ValidateAddDevice(req); !res.IsValid {
		return badRequest(res.Reason), nil
	}

	device, isNew, err := s.store.UpsertDevice(ctx, req.DeviceID, req.FriendlyName)
	if err != nil {
		return Result{}, fmt.Errorf("failed to register device: %w", err)
	}

	eventType := mq.EventDeviceUpdated
	if isNew {
		eventType = mq.EventDeviceRegistered
	}
	event := s.newEvent(ctx, eventType)
	event.DeviceID = device.DeviceID
	event.FriendlyName = device.FriendlyName
	s.publish(ctx, event)

	logging.FromContext(ctx, s.logger).Info("device registered",
		zap.String("device_id", device.DeviceID),
		zap.Bool("created", isNew),
	)

	if isNew {
		return created(DeviceResponse{
			Message:      "Device registered",
			DeviceID:     device.DeviceID,
			FriendlyName: device.FriendlyName,
		}), nil
	}
	return ok(DeviceResponse{
		Message:      "Device updated",
		DeviceID:     device.DeviceID,
		FriendlyName: device.FriendlyName,
	}), nil
}

// EditDevice renames a non-deleted device
func (s *RegistryService) EditDevice(ctx context.Context, req db.EditDeviceRequest) (Result, error) {
	if res := s.validator.ValidateEditDevice(req); !res.IsValid {
		return badRequest(res.Reason), nil
	}

	device, err := s.store.RenameDevice(ctx, req.DeviceID, req.NewFriendlyName)
	if errors.Is(err, repository.ErrDeviceNotFound) {
		return notFound(msgDeviceNotFound, req.DeviceID), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to rename device: %w", err)
	}

	event := s.newEvent(ctx, mq.EventDeviceRenamed)
	event.DeviceID = device.DeviceID
	event.FriendlyName = device.FriendlyName
	s.publish(ctx, event)

	return ok(DeviceResponse{
		Message:      "Device updated",
		DeviceID:     device.DeviceID,
		FriendlyName: device.FriendlyName,
	}), nil
}

// GetDevice returns a visible device with its reading history, newest first
func (s *RegistryService) GetDevice(ctx context.Context, deviceID string) (Result, error) {
	if validator.IsBlank(deviceID) {
		return badRequest("DeviceId is required"), nil
	}

	device, err := s.store.FindDeviceByID(ctx, deviceID, false)
	if errors.Is(err, repository.ErrDeviceNotFound) {
		return notFound(msgDeviceNotFound, deviceID), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to load device: %w", err)
	}

	readings, err := s.store.ListReadingsForDevice(ctx, deviceID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load sensor readings: %w", err)
	}

	history := make([]SensorReadingResponse, 0, len(readings))
	for _, r := range readings {
		history = append(history, newSensorReadingResponse(r))
	}

	return ok(DeviceDetailResponse{
		DeviceID:       device.DeviceID,
		FriendlyName:   device.FriendlyName,
		CreatedAt:      device.CreatedAt,
		SensorReadings: history,
	}), nil
}

// SoftDeleteDevice hides a device from default lookups
func (s *RegistryService) SoftDeleteDevice(ctx context.Context, deviceID string) (Result, error) {
	if validator.IsBlank(deviceID) {
		return badRequest("DeviceId is required"), nil
	}

	err := s.store.SoftDeleteDevice(ctx, deviceID)
	if errors.Is(err, repository.ErrDeviceNotFound) {
		return notFound(msgDeviceNotFound, deviceID), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to soft delete device: %w", err)
	}

	event := s.newEvent(ctx, mq.EventDeviceDeleted)
	event.DeviceID = deviceID
	s.publish(ctx, event)

	return noContent(), nil
}

// PurgeDevice permanently removes a device and its readings. includeDeleted
// allows purging a device that was already soft-deleted.
func (s *RegistryService) PurgeDevice(ctx context.Context, deviceID string, includeDeleted bool) (Result, error) {
	if validator.IsBlank(deviceID) {
		return badRequest("DeviceId is required"), nil
	}

	err := s.store.HardDeleteDevice(ctx, deviceID, includeDeleted)
	if errors.Is(err, repository.ErrDeviceNotFound) {
		return notFound(msgDeviceNotFound, deviceID), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to purge device: %w", err)
	}

	event := s.newEvent(ctx, mq.EventDevicePurged)
	event.DeviceID = deviceID
	s.publish(ctx, event)

	logging.FromContext(ctx, s.logger).Info("device purged", zap.String("device_id", deviceID))

	return noContent(), nil
}
