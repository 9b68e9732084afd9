package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/septivank/device-registry/internal/db"
	"github.com/septivank/device-registry/internal/logging"
	"github.com/septivank/device-registry/internal/mq"
	"github.com/septivank/device-registry/internal/service"
	"github.com/septivank/device-registry/internal/validator"
	"go.uber.org/zap"
)

type fixture struct {
	svc       *service.RegistryService
	store     *memStore
	publisher *recordingPublisher
	mirror    *recordingMirror
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     newMemStore(),
		publisher: &recordingPublisher{},
		mirror:    &recordingMirror{},
	}
	f.svc = service.NewRegistryService(
		f.store,
		f.publisher,
		f.mirror,
		validator.NewValidator(validator.MaxNameLength),
		zap.NewNop(),
	)
	return f
}

func mustResult(t *testing.T, res service.Result, err error, want service.Status) service.Result {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != want {
		t.Fatalf("Expected status %s, got %s (body %+v)", want, res.Status, res.Body)
	}
	return res
}

// mustCall is for setup steps whose outcome is asserted elsewhere
func mustCall(res service.Result, err error) service.Result {
	if err != nil {
		panic(err)
	}
	return res
}

func errorBody(t *testing.T, res service.Result) service.ErrorResponse {
	t.Helper()
	body, ok := res.Body.(service.ErrorResponse)
	if !ok {
		t.Fatalf("Expected ErrorResponse body, got %T", res.Body)
	}
	return body
}

func TestRegisterDevice_CreatedThenUpdated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.RegisterDevice(ctx, db.AddDeviceRequest{DeviceID: "dev-1", FriendlyName: "Sensor A"})
	res = mustResult(t, res, err, service.StatusCreated)
	body := res.Body.(service.DeviceResponse)
	if body.DeviceID != "dev-1" || body.FriendlyName != "Sensor A" {
		t.Errorf("Expected dev-1/Sensor A, got %+v", body)
	}

	res, err = f.svc.RegisterDevice(ctx, db.AddDeviceRequest{DeviceID: "dev-1", FriendlyName: "Sensor A2"})
	res = mustResult(t, res, err, service.StatusOK)
	body = res.Body.(service.DeviceResponse)
	if body.FriendlyName != "Sensor A2" {
		t.Errorf("Expected updated name Sensor A2, got %s", body.FriendlyName)
	}

	types := f.publisher.types()
	if len(types) != 2 || types[0] != mq.EventDeviceRegistered || types[1] != mq.EventDeviceUpdated {
		t.Errorf("Expected registered then updated events, got %v", types)
	}
}

func TestRegisterDevice_ReactivatesSoftDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.RegisterDevice(ctx, db.AddDeviceRequest{DeviceID: "dev-1", FriendlyName: "Old"})
	mustResult(t, res, err, service.StatusCreated)
	res, err = f.svc.SoftDeleteDevice(ctx, "dev-1")
	mustResult(t, res, err, service.StatusNoContent)

	res, err = f.svc.GetDevice(ctx, "dev-1")
	mustResult(t, res, err, service.StatusNotFound)

	res, err = f.svc.RegisterDevice(ctx, db.AddDeviceRequest{DeviceID: "dev-1", FriendlyName: "New"})
	mustResult(t, res, err, service.StatusOK)

	res, err = f.svc.GetDevice(ctx, "dev-1")
	res = mustResult(t, res, err, service.StatusOK)
	if got := res.Body.(service.DeviceDetailResponse).FriendlyName; got != "New" {
		t.Errorf("Expected reactivated device named New, got %s", got)
	}
}

func TestRegisterDevice_Validation(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.RegisterDevice(context.Background(), db.AddDeviceRequest{DeviceID: "dev-1"})
	res = mustResult(t, res, err, service.StatusBadRequest)
	if got := errorBody(t, res).Error; got != "DeviceId and FriendlyName are required" {
		t.Errorf("Expected required message, got %s", got)
	}
	if len(f.publisher.types()) != 0 {
		t.Error("Expected no event for a rejected request")
	}
}

func TestRecordReading_UnknownDevice(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.RecordReading(context.Background(), db.SensorDataRequest{DeviceID: "dev-99", Temperature: 20})
	res = mustResult(t, res, err, service.StatusNotFound)

	body := errorBody(t, res)
	if body.Error != "Device not found" || body.DeviceID != "dev-99" {
		t.Errorf("Expected Device not found for dev-99, got %+v", body)
	}
	if len(f.mirror.readings) != 0 {
		t.Error("Expected nothing mirrored for a rejected reading")
	}
}

func TestRecordReading_SoftDeletedDeviceRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mustCall(f.svc.RegisterDevice(ctx, db.AddDeviceRequest{DeviceID: "dev-1", FriendlyName: "A"}))
	mustCall(f.svc.SoftDeleteDevice(ctx, "dev-1"))

	res, err := f.svc.RecordReading(ctx, db.SensorDataRequest{DeviceID: "dev-1"})
	mustResult(t, res, err, service.StatusNotFound)
}

func TestGetDevice_ReadingsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mustCall(f.svc.RegisterDevice(ctx, db.AddDeviceRequest{DeviceID: "dev-1", FriendlyName: "Sensor A"}))

	first, err := f.svc.RecordReading(ctx, db.SensorDataRequest{DeviceID: "dev-1", Temperature: 20.5})
	first = mustResult(t, first, err, service.StatusCreated)
	second, err := f.svc.RecordReading(ctx, db.SensorDataRequest{DeviceID: "dev-1", Temperature: 21.5})
	second = mustResult(t, second, err, service.StatusCreated)

	res, err := f.svc.GetDevice(ctx, "dev-1")
	res = mustResult(t, res, err, service.StatusOK)

	detail := res.Body.(service.DeviceDetailResponse)
	if len(detail.SensorReadings) != 2 {
		t.Fatalf("Expected 2 readings, got %d", len(detail.SensorReadings))
	}
	if detail.SensorReadings[0].ID != second.Body.(service.ReadingCreatedResponse).ID {
		t.Errorf("Expected newest reading first, got %+v", detail.SensorReadings)
	}
	if detail.SensorReadings[1].ID != first.Body.(service.ReadingCreatedResponse).ID {
		t.Errorf("Expected oldest reading last, got %+v", detail.SensorReadings)
	}
	if len(f.mirror.readings) != 2 {
		t.Errorf("Expected 2 mirrored readings, got %d", len(f.mirror.readings))
	}
	if len(f.publisher.types()) != 1 {
		t.Errorf("Expected readings to publish no events, got %v", f.publisher.types())
	}
}

func TestGetDevice_EmptyHistoryIsEmptyList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mustCall(f.svc.RegisterDevice(ctx, db.AddDeviceRequest{DeviceID: "dev-1", FriendlyName: "A"}))

	res, err := f.svc.GetDevice(ctx, "dev-1")
	res = mustResult(t, res, err, service.StatusOK)
	if readings := res.Body.(service.DeviceDetailResponse).SensorReadings; readings == nil || len(readings) != 0 {
		t.Errorf("Expected empty non-nil history, got %v", readings)
	}
}

func TestEditDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.EditDevice(ctx, db.EditDeviceRequest{DeviceID: "dev-1", NewFriendlyName: "B"})
	mustResult(t, res, err, service.StatusNotFound)

	mustCall(f.svc.RegisterDevice(ctx, db.AddDeviceRequest{DeviceID: "dev-1", FriendlyName: "A"}))
	res, err = f.svc.EditDevice(ctx, db.EditDeviceRequest{DeviceID: "dev-1", NewFriendlyName: "B"})
	res = mustResult(t, res, err, service.StatusOK)
	if got := res.Body.(service.DeviceResponse).FriendlyName; got != "B" {
		t.Errorf("Expected B, got %s", got)
	}
}

func TestSoftDeleteDevice_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mustCall(f.svc.RegisterDevice(ctx, db.AddDeviceRequest{DeviceID: "dev-1", FriendlyName: "A"}))

	res, err := f.svc.SoftDeleteDevice(ctx, "dev-1")
	res = mustResult(t, res, err, service.StatusNoContent)
	if res.Body != nil {
		t.Errorf("Expected no body, got %+v", res.Body)
	}

	res, err = f.svc.SoftDeleteDevice(ctx, "dev-1")
	mustResult(t, res, err, service.StatusNotFound)
}

func TestPurgeDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mustCall(f.svc.RegisterDevice(ctx, db.AddDeviceRequest{DeviceID: "dev-1", FriendlyName: "A"}))
	mustCall(f.svc.RecordReading(ctx, db.SensorDataRequest{DeviceID: "dev-1"}))
	mustCall(f.svc.CreateGroup(ctx, db.CreateGroupRequest{GroupName: "Lab"}))
	mustCall(f.svc.AddDeviceToGroup(ctx, db.AddDeviceToGroupRequest{GroupName: "Lab", DeviceID: "dev-1"}))
	mustCall(f.svc.SoftDeleteDevice(ctx, "dev-1"))

	res, err := f.svc.PurgeDevice(ctx, "dev-1", false)
	mustResult(t, res, err, service.StatusNotFound)

	res, err = f.svc.PurgeDevice(ctx, "dev-1", true)
	mustResult(t, res, err, service.StatusNoContent)

	if len(f.store.readings) != 0 {
		t.Errorf("Expected readings removed, got %d", len(f.store.readings))
	}
	if n := f.store.membershipCount("Lab"); n != 0 {
		t.Errorf("Expected memberships removed, got %d", n)
	}

	res, err = f.svc.RegisterDevice(ctx, db.AddDeviceRequest{DeviceID: "dev-1", FriendlyName: "A"})
	mustResult(t, res, err, service.StatusCreated)
}

func TestCreateGroup_ConflictThenReuseAfterArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateGroup(ctx, db.CreateGroupRequest{GroupName: "Lab"})
	res = mustResult(t, res, err, service.StatusCreated)
	firstID := res.Body.(service.GroupResponse).GroupID

	res, err = f.svc.CreateGroup(ctx, db.CreateGroupRequest{GroupName: "Lab"})
	mustResult(t, res, err, service.StatusConflict)

	res, err = f.svc.ArchiveGroup(ctx, "Lab")
	mustResult(t, res, err, service.StatusOK)

	res, err = f.svc.CreateGroup(ctx, db.CreateGroupRequest{GroupName: "Lab"})
	res = mustResult(t, res, err, service.StatusCreated)
	if res.Body.(service.GroupResponse).GroupID == firstID {
		t.Error("Expected a new group id after reuse")
	}
}

func TestEditGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mustCall(f.svc.CreateGroup(ctx, db.CreateGroupRequest{GroupName: "Lab"}))
	mustCall(f.svc.CreateGroup(ctx, db.CreateGroupRequest{GroupName: "Field"}))

	res, err := f.svc.EditGroup(ctx, db.EditGroupRequest{GroupName: "Lab", NewName: "Field"})
	mustResult(t, res, err, service.StatusConflict)

	res, err = f.svc.EditGroup(ctx, db.EditGroupRequest{GroupName: "Nope", NewName: "X"})
	mustResult(t, res, err, service.StatusNotFound)

	res, err = f.svc.EditGroup(ctx, db.EditGroupRequest{GroupName: "Lab", NewName: "Lab 2"})
	res = mustResult(t, res, err, service.StatusOK)
	if got := res.Body.(service.GroupResponse).GroupName; got != "Lab 2" {
		t.Errorf("Expected Lab 2, got %s", got)
	}

	mustCall(f.svc.ArchiveGroup(ctx, "Field"))
	res, err = f.svc.EditGroup(ctx, db.EditGroupRequest{GroupName: "Field", NewName: "Other"})
	res = mustResult(t, res, err, service.StatusBadRequest)
	if got := errorBody(t, res).Error; got != "Cannot edit a deleted group" {
		t.Errorf("Expected deleted group message, got %s", got)
	}
}

func TestListGroups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.ListGroups(ctx)
	res = mustResult(t, res, err, service.StatusOK)
	if groups := res.Body.([]service.GroupListingResponse); groups == nil || len(groups) != 0 {
		t.Errorf("Expected empty non-nil list, got %v", groups)
	}

	mustCall(f.svc.RegisterDevice(ctx, db.AddDeviceRequest{DeviceID: "dev-1", FriendlyName: "A"}))
	mustCall(f.svc.RegisterDevice(ctx, db.AddDeviceRequest{DeviceID: "dev-2", FriendlyName: "B"}))
	mustCall(f.svc.CreateGroup(ctx, db.CreateGroupRequest{GroupName: "Lab"}))
	mustCall(f.svc.CreateGroup(ctx, db.CreateGroupRequest{GroupName: "Empty"}))
	mustCall(f.svc.CreateGroup(ctx, db.CreateGroupRequest{GroupName: "Gone"}))
	mustCall(f.svc.AddDeviceToGroup(ctx, db.AddDeviceToGroupRequest{GroupName: "Lab", DeviceID: "dev-1"}))
	mustCall(f.svc.AddDeviceToGroup(ctx, db.AddDeviceToGroupRequest{GroupName: "Lab", DeviceID: "dev-2"}))
	mustCall(f.svc.SoftDeleteDevice(ctx, "dev-2"))
	mustCall(f.svc.ArchiveGroup(ctx, "Gone"))

	res, err = f.svc.ListGroups(ctx)
	res = mustResult(t, res, err, service.StatusOK)
	groups := res.Body.([]service.GroupListingResponse)
	if len(groups) != 2 {
		t.Fatalf("Expected 2 visible groups, got %d", len(groups))
	}

	byName := map[string]service.GroupListingResponse{}
	for _, g := range groups {
		byName[g.GroupName] = g
	}
	lab := byName["Lab"]
	if len(lab.Devices) != 2 {
		t.Fatalf("Expected 2 members in Lab, got %d", len(lab.Devices))
	}
	for _, m := range lab.Devices {
		if m.DeviceID == "dev-2" && !m.IsDeleted {
			t.Error("Expected soft-deleted member to be flagged")
		}
	}
	if empty := byName["Empty"]; empty.Devices == nil || len(empty.Devices) != 0 {
		t.Errorf("Expected empty member list, got %v", empty.Devices)
	}
}

func TestAddDeviceToGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mustCall(f.svc.RegisterDevice(ctx, db.AddDeviceRequest{DeviceID: "dev-1", FriendlyName: "A"}))

	res, err := f.svc.AddDeviceToGroup(ctx, db.AddDeviceToGroupRequest{GroupName: "Lab", DeviceID: "dev-1"})
	res = mustResult(t, res, err, service.StatusNotFound)
	if got := errorBody(t, res).Error; got != "Group not found" {
		t.Errorf("Expected Group not found, got %s", got)
	}

	mustCall(f.svc.CreateGroup(ctx, db.CreateGroupRequest{GroupName: "Lab"}))

	res, err = f.svc.AddDeviceToGroup(ctx, db.AddDeviceToGroupRequest{GroupName: "Lab", DeviceID: "dev-9"})
	res = mustResult(t, res, err, service.StatusNotFound)
	if got := errorBody(t, res).DeviceID; got != "dev-9" {
		t.Errorf("Expected device id in body, got %s", got)
	}

	res, err = f.svc.AddDeviceToGroup(ctx, db.AddDeviceToGroupRequest{GroupName: "Lab", DeviceID: "dev-1"})
	mustResult(t, res, err, service.StatusCreated)

	res, err = f.svc.AddDeviceToGroup(ctx, db.AddDeviceToGroupRequest{GroupName: "Lab", DeviceID: "dev-1"})
	mustResult(t, res, err, service.StatusConflict)
}

func TestDeleteGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.DeleteGroup(ctx, "  ")
	mustResult(t, res, err, service.StatusBadRequest)

	res, err = f.svc.DeleteGroup(ctx, "Lab")
	mustResult(t, res, err, service.StatusNotFound)

	mustCall(f.svc.RegisterDevice(ctx, db.AddDeviceRequest{DeviceID: "dev-1", FriendlyName: "A"}))
	mustCall(f.svc.CreateGroup(ctx, db.CreateGroupRequest{GroupName: "Lab"}))
	mustCall(f.svc.AddDeviceToGroup(ctx, db.AddDeviceToGroupRequest{GroupName: "Lab", DeviceID: "dev-1"}))

	res, err = f.svc.DeleteGroup(ctx, "Lab")
	res = mustResult(t, res, err, service.StatusOK)
	if got := res.Body.(service.GroupResponse).GroupName; got != "Lab" {
		t.Errorf("Expected deleted group Lab, got %s", got)
	}
	if len(f.store.members) != 0 {
		t.Errorf("Expected memberships removed, got %d", len(f.store.members))
	}

	res, err = f.svc.GetDevice(ctx, "dev-1")
	mustResult(t, res, err, service.StatusOK)
}

func TestStorageFailureIsReturnedAsError(t *testing.T) {
	f := newFixture(t)
	f.store.failWith = errStorage

	_, err := f.svc.RegisterDevice(context.Background(), db.AddDeviceRequest{DeviceID: "dev-1", FriendlyName: "A"})
	if !errors.Is(err, errStorage) {
		t.Errorf("Expected wrapped storage error, got %v", err)
	}

	_, err = f.svc.ListGroups(context.Background())
	if !errors.Is(err, errStorage) {
		t.Errorf("Expected wrapped storage error, got %v", err)
	}
}

func TestPublishFailureDoesNotChangeResult(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("channel closed")

	res, err := f.svc.CreateGroup(context.Background(), db.CreateGroupRequest{GroupName: "Lab"})
	mustResult(t, res, err, service.StatusCreated)
}

func TestEventsCarryRequestID(t *testing.T) {
	f := newFixture(t)
	ctx := logging.ContextWithRequestID(context.Background(), "req-42")

	mustCall(f.svc.CreateGroup(ctx, db.CreateGroupRequest{GroupName: "Lab"}))

	if len(f.publisher.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(f.publisher.events))
	}
	event := f.publisher.events[0]
	if event.RequestID != "req-42" || event.GroupName != "Lab" || event.Type != mq.EventGroupCreated {
		t.Errorf("Unexpected event %+v", event)
	}
}
