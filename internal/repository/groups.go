package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/septivank/device-registry/internal/db"
)

const groupColumns = `group_id, group_name, is_deleted, created_at`

func scanGroup(row pgx.Row) (*db.Group, error) {
	var group db.Group
	err := row.Scan(
		&group.GroupID,
		&group.GroupName,
		&group.IsDeleted,
		&group.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// findActiveGroupByName looks a group up among non-deleted groups only
func findActiveGroupByName(ctx context.Context, q DBTX, name string, forUpdate bool) (*db.Group, error) {
	query := `
		SELECT ` + groupColumns + `
		FROM groups
		WHERE group_name = $1 AND is_deleted = FALSE
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	group, err := scanGroup(q.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to query group: %w", err)
	}

	return group, nil
}

// CreateGroup inserts a group unless a non-deleted group already has the
// name. Names of soft-deleted groups may be reused.
func (r *Repository) CreateGroup(ctx context.Context, name string) (*db.Group, error) {
	query := `
		INSERT INTO groups (group_name)
		SELECT $1::text
		WHERE NOT EXISTS (
			SELECT 1 FROM groups WHERE group_name = $1 AND is_deleted = FALSE
		)
		RETURNING ` + groupColumns

	group, err := scanGroup(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return nil, ErrGroupNameTaken
		}
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	return group, nil
}

// RenameGroup renames the group currently known as oldName. When only
// soft-deleted groups carry oldName, ErrGroupDeleted is returned.
func (r *Repository) RenameGroup(ctx context.Context, oldName, newName string) (*db.Group, error) {
	lookupQuery := `
		SELECT ` + groupColumns + `
		FROM groups
		WHERE group_name = $1
		ORDER BY is_deleted ASC, group_id DESC
		LIMIT 1
	`

	group, err := scanGroup(r.pool.QueryRow(ctx, lookupQuery, oldName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to query group: %w", err)
	}
	if group.IsDeleted {
		return nil, ErrGroupDeleted
	}

	conflictQuery := `
		SELECT EXISTS (
			SELECT 1 FROM groups
			WHERE group_name = $1 AND group_id <> $2 AND is_deleted = FALSE
		)
	`
	var taken bool
	if err := r.pool.QueryRow(ctx, conflictQuery, newName, group.GroupID).Scan(&taken); err != nil {
		return nil, fmt.Errorf("failed to check group name: %w", err)
	}
	if taken {
		return nil, ErrGroupNameTaken
	}

	updateQuery := `
		UPDATE groups
		SET group_name = $2
		WHERE group_id = $1 AND is_deleted = FALSE
		RETURNING ` + groupColumns

	renamed, err := scanGroup(r.pool.QueryRow(ctx, updateQuery, group.GroupID, newName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrGroupNameTaken
		}
		return nil, fmt.Errorf("failed to rename group: %w", err)
	}

	return renamed, nil
}

// SoftDeleteGroup marks the non-deleted group with the given name as deleted
func (r *Repository) SoftDeleteGroup(ctx context.Context, name string) (*db.Group, error) {
	query := `
		UPDATE groups
		SET is_deleted = TRUE
		WHERE group_name = $1 AND is_deleted = FALSE
		RETURNING ` + groupColumns

	group, err := scanGroup(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to soft delete group: %w", err)
	}

	return group, nil
}

// ListGroupsWithDevices returns every non-deleted group with its members.
// Member devices are listed whatever their own deletion state; IsDeleted on
// each member tells them apart.
func (r *Repository) ListGroupsWithDevices(ctx context.Context) ([]db.GroupWithDevices, error) {
	query := `
		SELECT g.group_id, g.group_name, g.is_deleted, g.created_at,
			d.device_id, d.friendly_name, d.created_at, d.is_deleted, dg.added_at
		FROM groups g
		LEFT JOIN device_groups dg ON dg.group_id = g.group_id
		LEFT JOIN devices d ON d.device_id = dg.device_id
		WHERE g.is_deleted = FALSE
		ORDER BY g.group_id, dg.added_at, dg.id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	groups := []db.GroupWithDevices{}
	for rows.Next() {
		var (
			group        db.Group
			deviceID     *string
			friendlyName *string
			createdAt    *time.Time
			isDeleted    *bool
			addedAt      *time.Time
		)
		if err := rows.Scan(
			&group.GroupID,
			&group.GroupName,
			&group.IsDeleted,
			&group.CreatedAt,
			&deviceID,
			&friendlyName,
			&createdAt,
			&isDeleted,
			&addedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}

		if len(groups) == 0 || groups[len(groups)-1].GroupID != group.GroupID {
			groups = append(groups, db.GroupWithDevices{Group: group, Devices: []db.GroupMember{}})
		}

		// memberships whose device was removed join to NULL
		if deviceID == nil {
			continue
		}
		current := &groups[len(groups)-1]
		current.Devices = append(current.Devices, db.GroupMember{
			DeviceID:     *deviceID,
			FriendlyName: *friendlyName,
			CreatedAt:    *createdAt,
			IsDeleted:    *isDeleted,
			AddedAt:      *addedAt,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return groups, nil
}

// AddDeviceToGroup records a membership. The group must be non-deleted and
// the device visible; an existing membership is rejected, never merged.
func (r *Repository) AddDeviceToGroup(ctx context.Context, groupName, deviceID string) (*db.DeviceGroup, error) {
	group, err := findActiveGroupByName(ctx, r.pool, groupName, false)
	if err != nil {
		return nil, err
	}

	if _, err := r.FindDeviceByID(ctx, deviceID, false); err != nil {
		return nil, err
	}

	existsQuery := `
		SELECT EXISTS (
			SELECT 1 FROM device_groups WHERE group_id = $1 AND device_id = $2
		)
	`
	var member bool
	if err := r.pool.QueryRow(ctx, existsQuery, group.GroupID, deviceID).Scan(&member); err != nil {
		return nil, fmt.Errorf("failed to check group membership: %w", err)
	}
	if member {
		return nil, ErrAlreadyMember
	}

	insertQuery := `
		INSERT INTO device_groups (group_id, device_id)
		VALUES ($1, $2)
		RETURNING id, group_id, device_id, added_at
	`
	var membership db.DeviceGroup
	err = r.pool.QueryRow(ctx, insertQuery, group.GroupID, deviceID).Scan(
		&membership.ID,
		&membership.GroupID,
		&membership.DeviceID,
		&membership.AddedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to insert group membership: %w", err)
	}

	return &membership, nil
}

// HardDeleteGroup removes the non-deleted group with the given name and all
// of its memberships in a single transaction
func (r *Repository) HardDeleteGroup(ctx context.Context, name string) (*db.Group, error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	group, err := findActiveGroupByName(ctx, tx, name, true)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM device_groups WHERE group_id = $1`, group.GroupID); err != nil {
		return nil, fmt.Errorf("failed to delete group memberships: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM groups WHERE group_id = $1`, group.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrGroupNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return group, nil
}
