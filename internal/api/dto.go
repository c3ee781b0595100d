package api

import (
	"time"

	"github.com/the-momentum/open-wearables-sub000/internal/domain"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DataSourceResponse is the wire form of a connected device.
type DataSourceResponse struct {
	ID              string `json:"id"`
	Provider        string `json:"provider"`
	DeviceModel     string `json:"device_model,omitempty"`
	SoftwareVersion string `json:"software_version,omitempty"`
	Source          string `json:"source,omitempty"`
	DeviceType      string `json:"device_type"`
}

// DevicesResponse lists a user's connected devices in ranked order.
type DevicesResponse struct {
	UserID  string               `json:"user_id"`
	Devices []DataSourceResponse `json:"devices"`
}

// EventRecordResponse is the wire form of a unified event.
type EventRecordResponse struct {
	ID           string    `json:"id"`
	DataSourceID string    `json:"data_source_id"`
	Category     string    `json:"category"`
	WorkoutType  string    `json:"workout_type,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	DurationSec  int64     `json:"duration_sec"`
}

// EventsResponse lists a user's events within the requested window.
type EventsResponse struct {
	UserID string                `json:"user_id"`
	Events []EventRecordResponse `json:"events"`
}

// ProviderPriorityRequest upserts a single provider ranking entry.
type ProviderPriorityRequest struct {
	Provider string `json:"provider"`
	Priority int    `json:"priority"`
}

// BulkProviderPriorityRequest replaces the whole provider ranking table.
type BulkProviderPriorityRequest struct {
	Priorities map[string]int `json:"priorities"`
}

// DeviceTypePriorityRequest upserts a single device type ranking entry.
type DeviceTypePriorityRequest struct {
	DeviceType string `json:"device_type"`
	Priority   int    `json:"priority"`
}

// BulkDeviceTypePriorityRequest replaces the whole device type ranking table.
type BulkDeviceTypePriorityRequest struct {
	Priorities map[string]int `json:"priorities"`
}

func toDataSourceResponse(source domain.DataSource) DataSourceResponse {
	return DataSourceResponse{
		ID:              source.ID,
		Provider:        string(source.Provider),
		DeviceModel:     domain.Deref(source.DeviceModel),
		SoftwareVersion: domain.Deref(source.SoftwareVersion),
		Source:          domain.Deref(source.Source),
		DeviceType:      string(source.DeviceType),
	}
}

func providerOrderResponse(order map[domain.Provider]int) map[string]int {
	out := make(map[string]int, len(order))
	for provider, priority := range order {
		out[string(provider)] = priority
	}
	return out
}

func deviceTypeOrderResponse(order map[domain.DeviceType]int) map[string]int {
	out := make(map[string]int, len(order))
	for deviceType, priority := range order {
		out[string(deviceType)] = priority
	}
	return out
}
