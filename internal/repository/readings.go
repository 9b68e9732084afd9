package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/septivank/device-registry/internal/db"
)

const readingColumns = `pkey, deviceid, dateadded, temperature, humidity, pressure, light, moisture`

func scanReading(row pgx.Row) (*db.SensorReading, error) {
	var reading db.SensorReading
	err := row.Scan(
		&reading.ID,
		&reading.DeviceID,
		&reading.DateAdded,
		&reading.Temperature,
		&reading.Humidity,
		&reading.Pressure,
		&reading.Light,
		&reading.Moisture,
	)
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

// InsertSensorReading stores a reading for a non-deleted device. The insert
// and the existence check are one statement.
func (r *Repository) InsertSensorReading(ctx context.Context, deviceID string, m db.Measurements) (*db.SensorReading, error) {
	query := `
		INSERT INTO data_arduino (deviceid, temperature, humidity, pressure, light, moisture)
		SELECT d.device_id, $2::float8, $3::float8, $4::float8, $5::float8, $6::float8
		FROM devices d
		WHERE d.device_id = $1 AND d.is_deleted = FALSE
		RETURNING ` + readingColumns

	reading, err := scanReading(r.pool.QueryRow(ctx, query,
		deviceID,
		m.Temperature,
		m.Humidity,
		m.Pressure,
		m.Light,
		m.Moisture,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to insert sensor reading: %w", err)
	}

	return reading, nil
}

// ListReadingsForDevice returns every reading of a device, newest first
func (r *Repository) ListReadingsForDevice(ctx context.Context, deviceID string) ([]db.SensorReading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM data_arduino
		WHERE deviceid = $1
		ORDER BY dateadded DESC, pkey DESC
	`

	rows, err := r.pool.Query(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensor readings: %w", err)
	}
	defer rows.Close()

	readings := []db.SensorReading{}
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sensor reading: %w", err)
		}
		readings = append(readings, *reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return readings, nil
}
