package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/septivank/device-registry/internal/db"
	"github.com/septivank/device-registry/internal/logging"
	"go.uber.org/zap"
)

func (h *handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context(), h.logger).Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *handler) recordReading(w http.ResponseWriter, r *http.Request) {
	var req db.SensorDataRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.registry.RecordReading(r.Context(), req)
	h.render(w, r, res, err)
}

func (h *handler) registerDevice(w http.ResponseWriter, r *http.Request) {
	var req db.AddDeviceRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.registry.RegisterDevice(r.Context(), req)
	h.render(w, r, res, err)
}

func (h *handler) editDevice(w http.ResponseWriter, r *http.Request) {
	var req db.EditDeviceRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.registry.EditDevice(r.Context(), req)
	h.render(w, r, res, err)
}

func (h *handler) getDevice(w http.ResponseWriter, r *http.Request) {
	res, err := h.registry.GetDevice(r.Context(), mux.Vars(r)["deviceId"])
	h.render(w, r, res, err)
}

func (h *handler) softDeleteDevice(w http.ResponseWriter, r *http.Request) {
	res, err := h.registry.SoftDeleteDevice(r.Context(), mux.Vars(r)["deviceId"])
	h.render(w, r, res, err)
}

func (h *handler) purgeDevice(w http.ResponseWriter, r *http.Request) {
	includeDeleted := false
	if raw := r.URL.Query().Get("includeDeleted"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "includeDeleted must be a boolean")
			return
		}
		includeDeleted = v
	}
	res, err := h.registry.PurgeDevice(r.Context(), mux.Vars(r)["deviceId"], includeDeleted)
	h.render(w, r, res, err)
}

func (h *handler) createGroup(w http.ResponseWriter, r *http.Request) {
	var req db.CreateGroupRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.registry.CreateGroup(r.Context(), req)
	h.render(w, r, res, err)
}

func (h *handler) editGroup(w http.ResponseWriter, r *http.Request) {
	var req db.EditGroupRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.registry.EditGroup(r.Context(), req)
	h.render(w, r, res, err)
}

func (h *handler) listGroups(w http.ResponseWriter, r *http.Request) {
	res, err := h.registry.ListGroups(r.Context())
	h.render(w, r, res, err)
}

func (h *handler) addDeviceToGroup(w http.ResponseWriter, r *http.Request) {
	var req db.AddDeviceToGroupRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.registry.AddDeviceToGroup(r.Context(), req)
	h.render(w, r, res, err)
}

func (h *handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	res, err := h.registry.DeleteGroup(r.Context(), mux.Vars(r)["groupName"])
	h.render(w, r, res, err)
}

func (h *handler) archiveGroup(w http.ResponseWriter, r *http.Request) {
	res, err := h.registry.ArchiveGroup(r.Context(), mux.Vars(r)["groupName"])
	h.render(w, r, res, err)
}
