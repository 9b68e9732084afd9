package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/septivank/device-registry/internal/db"
	"github.com/septivank/device-registry/internal/logging"
	"github.com/septivank/device-registry/internal/repository"
	"go.uber.org/zap"
)

// RecordReading stores a reading for a registered, non-deleted device
func (s *RegistryService) RecordReading(ctx context.Context, req db.SensorDataRequest) (Result, error) {
	if res := s.validator.ValidateSensorData(req); !res.IsValid {
		return badRequest(res.Reason), nil
	}

	reading, err := s.store.InsertSensorReading(ctx, req.DeviceID, req.Measurements())
	if errors.Is(err, repository.ErrDeviceNotFound) {
		return notFound(msgDeviceNotFound, req.DeviceID), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to record sensor reading: %w", err)
	}

	s.mirror.WriteReading(*reading)

	logging.FromContext(ctx, s.logger).Debug("sensor reading recorded",
		zap.Int64("id", reading.ID),
		zap.String("device_id", req.DeviceID),
	)

	return created(ReadingCreatedResponse{
		Message:   "Sensor data recorded",
		ID:        reading.ID,
		DeviceID:  req.DeviceID,
		DateAdded: reading.DateAdded,
	}), nil
}
