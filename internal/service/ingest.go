package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/septivank/device-registry/internal/db"
	"github.com/septivank/device-registry/internal/logging"
	"go.uber.org/zap"
)

// ErrIngestRejected is returned when a queued reading cannot be stored
var ErrIngestRejected = errors.New("ingest message rejected")

// IngestMessage is a sensor reading delivered through the ingest queue
type IngestMessage struct {
	RequestID   string  `json:"request_id"`
	DeviceID    string  `json:"device_id"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
	Light       float64 `json:"light"`
	Moisture    float64 `json:"moisture"`
}

// ProcessIngestMessage records a queued reading. Any outcome other than
// created is returned as an error so the consumer dead-letters the delivery.
func (s *RegistryService) ProcessIngestMessage(ctx context.Context, body []byte) error {
	var msg IngestMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	if msg.RequestID != "" {
		ctx = logging.ContextWithRequestID(ctx, msg.RequestID)
	}
	reqLogger := logging.FromContext(ctx, s.logger)

	res, err := s.RecordReading(ctx, db.SensorDataRequest{
		DeviceID:    msg.DeviceID,
		Temperature: msg.Temperature,
		Humidity:    msg.Humidity,
		Pressure:    msg.Pressure,
		Light:       msg.Light,
		Moisture:    msg.Moisture,
	})
	if err != nil {
		reqLogger.Error("failed to record queued reading", zap.Error(err))
		return err
	}

	if res.Status != StatusCreated {
		reason := res.Status.String()
		if body, ok := res.Body.(ErrorResponse); ok {
			reason = body.Error
		}
		return fmt.Errorf("%w: device %q: %s", ErrIngestRejected, msg.DeviceID, reason)
	}

	reqLogger.Info("queued reading processed", zap.String("device_id", msg.DeviceID))
	return nil
}
