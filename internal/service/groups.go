package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/septivank/device-registry/internal/db"
	"github.com/septivank/device-registry/internal/mq"
	"github.com/septivank/device-registry/internal/repository"
	"github.com/septivank/device-registry/internal/validator"
)

const (
	msgGroupNotFound  = "Group not found"
	msgGroupNameTaken = "Group with this name already exists"
)

// CreateGroup creates a group whose name is unused among non-deleted groups
func (s *RegistryService) CreateGroup(ctx context.Context, req db.CreateGroupRequest) (Result, error) {
	if res := s.validator.ValidateCreateGroup(req); !res.IsValid {
		return badRequest(res.Reason), nil
	}

	group, err := s.store.CreateGroup(ctx, req.GroupName)
	if errors.Is(err, repository.ErrGroupNameTaken) {
		return conflict(msgGroupNameTaken), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to create group: %w", err)
	}

	s.publishGroupEvent(ctx, mq.EventGroupCreated, group)

	return created(GroupResponse{
		Message:   "Group created",
		GroupID:   group.GroupID,
		GroupName: group.GroupName,
	}), nil
}

// EditGroup renames a group. Editing a soft-deleted group is rejected as a
// bad request.
func (s *RegistryService) EditGroup(ctx context.Context, req db.EditGroupRequest) (Result, error) {
	if res := s.validator.ValidateEditGroup(req); !res.IsValid {
		return badRequest(res.Reason), nil
	}

	group, err := s.store.RenameGroup(ctx, req.GroupName, req.NewName)
	switch {
	case errors.Is(err, repository.ErrGroupNotFound):
		return notFound(msgGroupNotFound, ""), nil
	case errors.Is(err, repository.ErrGroupDeleted):
		return badRequest("Cannot edit a deleted group"), nil
	case errors.Is(err, repository.ErrGroupNameTaken):
		return conflict("A group with this name already exists"), nil
	case err != nil:
		return Result{}, fmt.Errorf("failed to rename group: %w", err)
	}

	s.publishGroupEvent(ctx, mq.EventGroupRenamed, group)

	return ok(GroupResponse{
		Message:   "Group updated",
		GroupID:   group.GroupID,
		GroupName: group.GroupName,
	}), nil
}

// ListGroups returns every non-deleted group with its member devices
func (s *RegistryService) ListGroups(ctx context.Context) (Result, error) {
	groups, err := s.store.ListGroupsWithDevices(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list groups: %w", err)
	}

	listing := make([]GroupListingResponse, 0, len(groups))
	for _, g := range groups {
		listing = append(listing, newGroupListingResponse(g))
	}

	return ok(listing), nil
}

// AddDeviceToGroup adds a visible device to a non-deleted group
func (s *RegistryService) AddDeviceToGroup(ctx context.Context, req db.AddDeviceToGroupRequest) (Result, error) {
	if res := s.validator.ValidateAddDeviceToGroup(req); !res.IsValid {
		return badRequest(res.Reason), nil
	}

	membership, err := s.store.AddDeviceToGroup(ctx, req.GroupName, req.DeviceID)
	switch {
	case errors.Is(err, repository.ErrGroupNotFound):
		return notFound(msgGroupNotFound, ""), nil
	case errors.Is(err, repository.ErrDeviceNotFound):
		return notFound(msgDeviceNotFound, req.DeviceID), nil
	case errors.Is(err, repository.ErrAlreadyMember):
		return conflict("Device is already in this group"), nil
	case err != nil:
		return Result{}, fmt.Errorf("failed to add device to group: %w", err)
	}

	event := s.newEvent(ctx, mq.EventGroupMemberAdded)
	event.GroupID = membership.GroupID
	event.GroupName = req.GroupName
	event.DeviceID = req.DeviceID
	s.publish(ctx, event)

	return created(MembershipResponse{
		Message:   "Device added to group",
		GroupName: req.GroupName,
		DeviceID:  req.DeviceID,
	}), nil
}

// DeleteGroup permanently removes a group and its memberships
func (s *RegistryService) DeleteGroup(ctx context.Context, groupName string) (Result, error) {
	if validator.IsBlank(groupName) {
		return badRequest("Group name is required"), nil
	}

	group, err := s.store.HardDeleteGroup(ctx, groupName)
	if errors.Is(err, repository.ErrGroupNotFound) {
		return notFound(msgGroupNotFound, ""), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to delete group: %w", err)
	}

	s.publishGroupEvent(ctx, mq.EventGroupDeleted, group)

	return ok(GroupResponse{
		Message:   "Group deleted",
		GroupID:   group.GroupID,
		GroupName: group.GroupName,
	}), nil
}

// ArchiveGroup soft-deletes a group, freeing its name for reuse
func (s *RegistryService) ArchiveGroup(ctx context.Context, groupName string) (Result, error) {
	if validator.IsBlank(groupName) {
		return badRequest("Group name is required"), nil
	}

	group, err := s.store.SoftDeleteGroup(ctx, groupName)
	if errors.Is(err, repository.ErrGroupNotFound) {
		return notFound(msgGroupNotFound, ""), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to archive group: %w", err)
	}

	s.publishGroupEvent(ctx, mq.EventGroupArchived, group)

	return ok(GroupResponse{
		Message:   "Group archived",
		GroupID:   group.GroupID,
		GroupName: group.GroupName,
	}), nil
}

func (s *RegistryService) publishGroupEvent(ctx context.Context, eventType mq.EventType, group *db.Group) {
	event := s.newEvent(ctx, eventType)
	event.GroupID = group.GroupID
	event.GroupName = group.GroupName
	s.publish(ctx, event)
}
