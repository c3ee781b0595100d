// Package domain defines the canonical types shared by the normalization core.
package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrUnknownProvider is returned when an identity names a provider outside the fixed enumeration.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrUnknownDeviceType is returned when a device type string cannot be classified.
	ErrUnknownDeviceType = errors.New("unknown device type")
)

// Provider identifies a wearable or health platform integration.
type Provider string

const (
	ProviderApple    Provider = "apple"
	ProviderGarmin   Provider = "garmin"
	ProviderFitbit   Provider = "fitbit"
	ProviderPolar    Provider = "polar"
	ProviderOura     Provider = "oura"
	ProviderWhoop    Provider = "whoop"
	ProviderSuunto   Provider = "suunto"
	ProviderWithings Provider = "withings"
)

// Providers lists every supported provider in a stable order.
func Providers() []Provider {
	return []Provider{
		ProviderApple,
		ProviderGarmin,
		ProviderFitbit,
		ProviderPolar,
		ProviderOura,
		ProviderWhoop,
		ProviderSuunto,
		ProviderWithings,
	}
}

// ParseProvider validates a raw provider string against the enumeration.
func ParseProvider(value string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Providers() {
		if p == known {
			return p, nil
		}
	}
	return "", ErrUnknownProvider
}

// DeviceType is the coarse device category inferred for a data source.
type DeviceType string

const (
	DeviceTypeWatch   DeviceType = "watch"
	DeviceTypeRing    DeviceType = "ring"
	DeviceTypePhone   DeviceType = "phone"
	DeviceTypeScale   DeviceType = "scale"
	DeviceTypeBand    DeviceType = "band"
	DeviceTypeOther   DeviceType = "other"
	DeviceTypeUnknown DeviceType = "unknown"
)

// DeviceTypes lists every device type in a stable order.
func DeviceTypes() []DeviceType {
	return []DeviceType{
		DeviceTypeWatch,
		DeviceTypeRing,
		DeviceTypePhone,
		DeviceTypeScale,
		DeviceTypeBand,
		DeviceTypeOther,
		DeviceTypeUnknown,
	}
}

// DataSource is the canonical identity of one (user, provider, device, source) reporting unit.
// At most one row exists per (user_id, provider, device_model, source), comparing
// absent optional components as empty strings.
type DataSource struct {
	ID                 string
	UserID             string
	Provider           Provider
	DeviceModel        *string
	SoftwareVersion    *string
	Source             *string
	DeviceType         DeviceType
	OriginalSourceName *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IdentityKey is the uniqueness key of a DataSource with optional components
// collapsed to empty strings, suitable as a map key.
type IdentityKey struct {
	UserID      string
	DeviceModel string
	Source      string
}

// Identity derives the uniqueness key for the data source.
func (d DataSource) Identity() IdentityKey {
	return IdentityKey{
		UserID:      d.UserID,
		DeviceModel: Deref(d.DeviceModel),
		Source:      Deref(d.Source),
	}
}

// Deref returns the pointed-to string or "" for nil.
func Deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// Ptr returns a pointer to value, or nil when value is empty.
func Ptr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
