package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/septivank/device-registry/internal/db"
	"github.com/septivank/device-registry/internal/service"
	"go.uber.org/zap"
)

// Registry is the service surface the HTTP layer calls.
// *service.RegistryService implements it.
type Registry interface {
	RecordReading(ctx context.Context, req db.SensorDataRequest) (service.Result, error)

	RegisterDevice(ctx context.Context, req db.AddDeviceRequest) (service.Result, error)
	EditDevice(ctx context.Context, req db.EditDeviceRequest) (service.Result, error)
	GetDevice(ctx context.Context, deviceID string) (service.Result, error)
	SoftDeleteDevice(ctx context.Context, deviceID string) (service.Result, error)
	PurgeDevice(ctx context.Context, deviceID string, includeDeleted bool) (service.Result, error)

	CreateGroup(ctx context.Context, req db.CreateGroupRequest) (service.Result, error)
	EditGroup(ctx context.Context, req db.EditGroupRequest) (service.Result, error)
	ListGroups(ctx context.Context) (service.Result, error)
	AddDeviceToGroup(ctx context.Context, req db.AddDeviceToGroupRequest) (service.Result, error)
	DeleteGroup(ctx context.Context, groupName string) (service.Result, error)
	ArchiveGroup(ctx context.Context, groupName string) (service.Result, error)
}

// Pinger reports storage health
type Pinger interface {
	Ping(ctx context.Context) error
}

type handler struct {
	registry Registry
	health   Pinger
	logger   *zap.Logger
}

// NewRouter builds the REST routes
func NewRouter(registry Registry, health Pinger, logger *zap.Logger) *mux.Router {
	h := &handler{registry: registry, health: health, logger: logger}

	router := mux.NewRouter()
	router.Use(requestIDMiddleware, recoveryMiddleware(logger), loggingMiddleware(logger))

	router.HandleFunc("/health", h.healthCheck).Methods(http.MethodGet)

	router.HandleFunc("/data/sensorData", h.recordReading).Methods(http.MethodPost)

	device := router.PathPrefix("/device").Subrouter()
	device.HandleFunc("/addDevice", h.registerDevice).Methods(http.MethodPost)
	device.HandleFunc("/edit", h.editDevice).Methods(http.MethodPut)
	device.HandleFunc("/{deviceId}", h.getDevice).Methods(http.MethodGet)
	device.HandleFunc("/{deviceId}", h.softDeleteDevice).Methods(http.MethodDelete)
	device.HandleFunc("/{deviceId}/purge", h.purgeDevice).Methods(http.MethodDelete)

	group := router.PathPrefix("/group").Subrouter()
	group.HandleFunc("/create", h.createGroup).Methods(http.MethodPost)
	group.HandleFunc("/edit", h.editGroup).Methods(http.MethodPut)
	group.HandleFunc("/getAll", h.listGroups).Methods(http.MethodGet)
	group.HandleFunc("/addDevice", h.addDeviceToGroup).Methods(http.MethodPost)
	group.HandleFunc("/delete/{groupName}", h.deleteGroup).Methods(http.MethodDelete)
	group.HandleFunc("/archive/{groupName}", h.archiveGroup).Methods(http.MethodDelete)

	return router
}
