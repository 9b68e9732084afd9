package db

// SensorDataRequest is the payload for recording a sensor reading
type SensorDataRequest struct {
	DeviceID    string  `json:"deviceId"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
	Light       float64 `json:"light"`
	Moisture    float64 `json:"moisture"`
}

// Measurements returns the request's values in storage form
func (r SensorDataRequest) Measurements() Measurements {
	return Measurements{
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Pressure:    r.Pressure,
		Light:       r.Light,
		Moisture:    r.Moisture,
	}
}

// AddDeviceRequest registers a device or updates its friendly name
type AddDeviceRequest struct {
	DeviceID     string `json:"deviceId"`
	FriendlyName string `json:"friendlyName"`
}

// EditDeviceRequest renames an existing device
type EditDeviceRequest struct {
	DeviceID        string `json:"deviceId"`
	NewFriendlyName string `json:"newFriendlyName"`
}

// CreateGroupRequest creates a group
type CreateGroupRequest struct {
	GroupName string `json:"groupName"`
}

// EditGroupRequest renames a group
type EditGroupRequest struct {
	GroupName string `json:"groupName"`
	NewName   string `json:"newName"`
}

// AddDeviceToGroupRequest adds a device to a group
type AddDeviceToGroupRequest struct {
	GroupName string `json:"groupName"`
	DeviceID  string `json:"deviceId"`
}
