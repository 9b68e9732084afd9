package repository

import "errors"

// Domain errors returned by the repository.
//
// Check them with errors.Is:
//
//	if errors.Is(err, repository.ErrDeviceNotFound) {
//	    // respond 404
//	}
var (
	// ErrDeviceNotFound is returned when a device does not exist or is hidden by soft deletion.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrGroupNotFound is returned when no group carries the requested name.
	ErrGroupNotFound = errors.New("group: not found")

	// ErrGroupDeleted is returned when the only group with the requested name is soft-deleted.
	ErrGroupDeleted = errors.New("group: deleted")

	// ErrGroupNameTaken is returned when a non-deleted group already uses the name.
	ErrGroupNameTaken = errors.New("group: name already exists")

	// ErrAlreadyMember is returned when the device is already in the group.
	ErrAlreadyMember = errors.New("device group: already a member")
)
