package db

import (
	"time"
)

// Device represents a registered device in the database
type Device struct {
	DeviceID     string
	FriendlyName string
	IsDeleted    bool
	CreatedAt    time.Time
}

// Measurements holds the five values carried by every sensor reading
type Measurements struct {
	Temperature float64
	Humidity    float64
	Pressure    float64
	Light       float64
	Moisture    float64
}

// SensorReading represents a row of data_arduino
type SensorReading struct {
	ID        int64
	DeviceID  *string
	DateAdded time.Time
	Measurements
}

// Group represents a named device group in the database
type Group struct {
	GroupID   int64
	GroupName string
	IsDeleted bool
	CreatedAt time.Time
}

// DeviceGroup represents a device's membership in a group
type DeviceGroup struct {
	ID       int64
	GroupID  int64
	DeviceID *string
	AddedAt  time.Time
}

// GroupMember is the subset of a member device returned by group listings
type GroupMember struct {
	DeviceID     string
	FriendlyName string
	CreatedAt    time.Time
	IsDeleted    bool
	AddedAt      time.Time
}

// GroupWithDevices is a non-deleted group together with its members
type GroupWithDevices struct {
	Group
	Devices []GroupMember
}
