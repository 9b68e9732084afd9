package service

import (
	"time"

	"github.com/septivank/device-registry/internal/db"
)

// ErrorResponse is the body of every non-2xx result
type ErrorResponse struct {
	Error    string `json:"error"`
	DeviceID string `json:"deviceId,omitempty"`
}

// ReadingCreatedResponse is returned after a reading is stored
type ReadingCreatedResponse struct {
	Message   string    `json:"message"`
	ID        int64     `json:"id"`
	DeviceID  string    `json:"deviceId"`
	DateAdded time.Time `json:"dateAdded"`
}

// DeviceResponse is returned after a device is registered or renamed
type DeviceResponse struct {
	Message      string `json:"message"`
	DeviceID     string `json:"deviceId"`
	FriendlyName string `json:"friendlyName"`
}

// SensorReadingResponse is one reading in a device's history
type SensorReadingResponse struct {
	ID          int64     `json:"id"`
	DeviceID    *string   `json:"deviceId"`
	DateAdded   time.Time `json:"dateAdded"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure"`
	Light       float64   `json:"light"`
	Moisture    float64   `json:"moisture"`
}

// DeviceDetailResponse is a device with its full reading history, newest first
type DeviceDetailResponse struct {
	DeviceID       string                  `json:"deviceId"`
	FriendlyName   string                  `json:"friendlyName"`
	CreatedAt      time.Time               `json:"createdAt"`
	SensorReadings []SensorReadingResponse `json:"sensorReadings"`
}

// GroupResponse is returned after a group is created, renamed or deleted
type GroupResponse struct {
	Message   string `json:"message"`
	GroupID   int64  `json:"groupId"`
	GroupName string `json:"groupName"`
}

// MembershipResponse is returned after a device joins a group
type MembershipResponse struct {
	Message   string `json:"message"`
	GroupName string `json:"groupName"`
	DeviceID  string `json:"deviceId"`
}

// GroupMemberResponse is a member device in a group listing
type GroupMemberResponse struct {
	DeviceID     string    `json:"deviceId"`
	FriendlyName string    `json:"friendlyName"`
	CreatedAt    time.Time `json:"createdAt"`
	AddedAt      time.Time `json:"addedAt"`
	IsDeleted    bool      `json:"isDeleted"`
}

// GroupListingResponse is a group with its members
type GroupListingResponse struct {
	GroupID   int64                 `json:"groupId"`
	GroupName string                `json:"groupName"`
	CreatedAt time.Time             `json:"createdAt"`
	Devices   []GroupMemberResponse `json:"devices"`
}

func newSensorReadingResponse(r db.SensorReading) SensorReadingResponse {
	return SensorReadingResponse{
		ID:          r.ID,
		DeviceID:    r.DeviceID,
		DateAdded:   r.DateAdded,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Pressure:    r.Pressure,
		Light:       r.Light,
		Moisture:    r.Moisture,
	}
}

func newGroupListingResponse(g db.GroupWithDevices) GroupListingResponse {
	devices := make([]GroupMemberResponse, 0, len(g.Devices))
	for _, m := range g.Devices {
		devices = append(devices, GroupMemberResponse{
			DeviceID:     m.DeviceID,
			FriendlyName: m.FriendlyName,
			CreatedAt:    m.CreatedAt,
			AddedAt:      m.AddedAt,
			IsDeleted:    m.IsDeleted,
		})
	}
	return GroupListingResponse{
		GroupID:   g.GroupID,
		GroupName: g.GroupName,
		CreatedAt: g.CreatedAt,
		Devices:   devices,
	}
}
