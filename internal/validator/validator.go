package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/septivank/device-registry/internal/db"
)

// MaxNameLength bounds friendly_name and group_name (VARCHAR(100))
const MaxNameLength = 100

// ValidationResult holds validation outcome
type ValidationResult struct {
	IsValid bool
	Reason  string
}

func valid() ValidationResult {
	return ValidationResult{IsValid: true}
}

func invalid(reason string) ValidationResult {
	return ValidationResult{Reason: reason}
}

// Validator checks request shapes before they reach storage
type Validator struct {
	maxNameLength int
}

// NewValidator creates a new validator with the specified name length limit
func NewValidator(maxNameLength int) *Validator {
	if maxNameLength <= 0 || maxNameLength > MaxNameLength {
		maxNameLength = MaxNameLength
	}
	return &Validator{
		maxNameLength: maxNameLength,
	}
}

// IsBlank reports whether s is empty or whitespace only
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func (v *Validator) nameTooLong(name string) bool {
	return utf8.RuneCountInString(name) > v.maxNameLength
}

// ValidateSensorData validates a sensor reading. Measurements are not range-checked.
func (v *Validator) ValidateSensorData(req db.SensorDataRequest) ValidationResult {
	if IsBlank(req.DeviceID) {
		return invalid("DeviceId is required")
	}
	return valid()
}

// ValidateAddDevice validates a device registration
func (v *Validator) ValidateAddDevice(req db.AddDeviceRequest) ValidationResult {
	if IsBlank(req.DeviceID) || IsBlank(req.FriendlyName) {
		return invalid("DeviceId and FriendlyName are required")
	}
	if v.nameTooLong(req.FriendlyName) {
		return invalid(fmt.Sprintf("FriendlyName must be at most %d characters", v.maxNameLength))
	}
	return valid()
}

// ValidateEditDevice validates a device rename
func (v *Validator) ValidateEditDevice(req db.EditDeviceRequest) ValidationResult {
	if IsBlank(req.DeviceID) || IsBlank(req.NewFriendlyName) {
		return invalid("DeviceId and NewFriendlyName are required")
	}
	if v.nameTooLong(req.NewFriendlyName) {
		return invalid(fmt.Sprintf("NewFriendlyName must be at most %d characters", v.maxNameLength))
	}
	return valid()
}

// ValidateCreateGroup validates a group creation
func (v *Validator) ValidateCreateGroup(req db.CreateGroupRequest) ValidationResult {
	if IsBlank(req.GroupName) {
		return invalid("GroupName is required")
	}
	if v.nameTooLong(req.GroupName) {
		return invalid(fmt.Sprintf("GroupName must be at most %d characters", v.maxNameLength))
	}
	return valid()
}

// ValidateEditGroup validates a group rename
func (v *Validator) ValidateEditGroup(req db.EditGroupRequest) ValidationResult {
	if IsBlank(req.GroupName) || IsBlank(req.NewName) {
		return invalid("GroupName and NewName are required")
	}
	if v.nameTooLong(req.NewName) {
		return invalid(fmt.Sprintf("NewName must be at most %d characters", v.maxNameLength))
	}
	return valid()
}

// ValidateAddDeviceToGroup validates a membership request
func (v *Validator) ValidateAddDeviceToGroup(req db.AddDeviceToGroupRequest) ValidationResult {
	if IsBlank(req.GroupName) || IsBlank(req.DeviceID) {
		return invalid("GroupName and DeviceId are required")
	}
	return valid()
}
