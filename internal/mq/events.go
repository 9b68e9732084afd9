package mq

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a registry change
type EventType string

// Registry event types
const (
	EventDeviceRegistered EventType = "device.registered"
	EventDeviceUpdated    EventType = "device.updated"
	EventDeviceRenamed    EventType = "device.renamed"
	EventDeviceDeleted    EventType = "device.deleted"
	EventDevicePurged     EventType = "device.purged"
	EventGroupCreated     EventType = "group.created"
	EventGroupRenamed     EventType = "group.renamed"
	EventGroupArchived    EventType = "group.archived"
	EventGroupDeleted     EventType = "group.deleted"
	EventGroupMemberAdded EventType = "group.member_added"
)

// routingKeyPrefix namespaces registry events on the topic exchange
const routingKeyPrefix = "registry."

// RoutingKey returns the topic routing key for the event type
func (t EventType) RoutingKey() string {
	return routingKeyPrefix + string(t)
}

// RegistryEvent represents the event published after a registry change
type RegistryEvent struct {
	EventID      string    `json:"event_id"`
	Type         EventType `json:"type"`
	OccurredAt   time.Time `json:"occurred_at"`
	RequestID    string    `json:"request_id,omitempty"`
	DeviceID     string    `json:"device_id,omitempty"`
	FriendlyName string    `json:"friendly_name,omitempty"`
	GroupID      int64     `json:"group_id,omitempty"`
	GroupName    string    `json:"group_name,omitempty"`
}

// NewRegistryEvent stamps a new event with an id and the current time
func NewRegistryEvent(eventType EventType, requestID string) RegistryEvent {
	return RegistryEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		RequestID:  requestID,
	}
}
