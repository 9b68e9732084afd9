package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/septivank/device-registry/internal/db"
)

const deviceColumns = `device_id, friendly_name, is_deleted, created_at`

func scanDevice(row pgx.Row) (*db.Device, error) {
	var device db.Device
	err := row.Scan(
		&device.DeviceID,
		&device.FriendlyName,
		&device.IsDeleted,
		&device.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// FindDeviceByID retrieves a device. Soft-deleted devices are only returned
// when includeDeleted is true.
func (r *Repository) FindDeviceByID(ctx context.Context, deviceID string, includeDeleted bool) (*db.Device, error) {
	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE device_id = $1 AND (is_deleted = FALSE OR $2::boolean)
	`

	device, err := scanDevice(r.pool.QueryRow(ctx, query, deviceID, includeDeleted))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to query device: %w", err)
	}

	return device, nil
}

// UpsertDevice registers a device or, when the id already exists (deleted or
// not), overwrites its friendly name and reactivates it. created reports
// whether a new row was inserted.
func (r *Repository) UpsertDevice(ctx context.Context, deviceID, friendlyName string) (device *db.Device, created bool, err error) {
	// xmax is zero only on a freshly inserted row version
	query := `
		INSERT INTO devices (device_id, friendly_name)
		VALUES ($1, $2)
		ON CONFLICT (device_id) DO UPDATE
		SET friendly_name = EXCLUDED.friendly_name, is_deleted = FALSE
		RETURNING ` + deviceColumns + `, (xmax = 0) AS inserted
	`

	var d db.Device
	err = r.pool.QueryRow(ctx, query, deviceID, friendlyName).Scan(
		&d.DeviceID,
		&d.FriendlyName,
		&d.IsDeleted,
		&d.CreatedAt,
		&created,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert device: %w", err)
	}

	return &d, created, nil
}

// RenameDevice changes the friendly name of a non-deleted device
func (r *Repository) RenameDevice(ctx context.Context, deviceID, friendlyName string) (*db.Device, error) {
	query := `
		UPDATE devices
		SET friendly_name = $2
		WHERE device_id = $1 AND is_deleted = FALSE
		RETURNING ` + deviceColumns

	device, err := scanDevice(r.pool.QueryRow(ctx, query, deviceID, friendlyName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to rename device: %w", err)
	}

	return device, nil
}

// SoftDeleteDevice marks a visible device as deleted. Its readings and group
// memberships are left in place.
func (r *Repository) SoftDeleteDevice(ctx context.Context, deviceID string) error {
	query := `
		UPDATE devices
		SET is_deleted = TRUE
		WHERE device_id = $1 AND is_deleted = FALSE
	`

	tag, err := r.pool.Exec(ctx, query, deviceID)
	if err != nil {
		return fmt.Errorf("failed to soft delete device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// HardDeleteDevice removes a device together with its sensor readings and
// group memberships in a single transaction. On any failure nothing is
// removed.
func (r *Repository) HardDeleteDevice(ctx context.Context, deviceID string, includeDeleted bool) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	lockQuery := `
		SELECT device_id
		FROM devices
		WHERE device_id = $1 AND (is_deleted = FALSE OR $2::boolean)
		FOR UPDATE
	`
	var locked string
	if err := tx.QueryRow(ctx, lockQuery, deviceID, includeDeleted).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("failed to lock device: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM data_arduino WHERE deviceid = $1`, deviceID); err != nil {
		return fmt.Errorf("failed to delete sensor readings: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM device_groups WHERE device_id = $1`, deviceID); err != nil {
		return fmt.Errorf("failed to delete group memberships: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM devices WHERE device_id = $1`, deviceID)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
