package identity

import (
	"strings"

	"github.com/the-momentum/open-wearables-sub000/internal/domain"
)

// modelDeviceTypes maps known device model substrings to a device type.
// Matched against the lower-cased model, first match wins.
var modelDeviceTypes = []struct {
	substr     string
	deviceType domain.DeviceType
}{
	{"apple watch", domain.DeviceTypeWatch},
	{"forerunner", domain.DeviceTypeWatch},
	{"fenix", domain.DeviceTypeWatch},
	{"venu", domain.DeviceTypeWatch},
	{"vivoactive", domain.DeviceTypeWatch},
	{"epix", domain.DeviceTypeWatch},
	{"versa", domain.DeviceTypeWatch},
	{"sense", domain.DeviceTypeWatch},
	{"ionic", domain.DeviceTypeWatch},
	{"vantage", domain.DeviceTypeWatch},
	{"grit x", domain.DeviceTypeWatch},
	{"pacer", domain.DeviceTypeWatch},
	{"suunto 9", domain.DeviceTypeWatch},
	{"suunto race", domain.DeviceTypeWatch},
	{"scanwatch", domain.DeviceTypeWatch},
	{"oura ring", domain.DeviceTypeRing},
	{"iphone", domain.DeviceTypePhone},
	{"pixel", domain.DeviceTypePhone},
	{"galaxy s", domain.DeviceTypePhone},
	{"body+", domain.DeviceTypeScale},
	{"body comp", domain.DeviceTypeScale},
	{"body scan", domain.DeviceTypeScale},
	{"aria", domain.DeviceTypeScale},
	{"charge", domain.DeviceTypeBand},
	{"inspire", domain.DeviceTypeBand},
	{"luxe", domain.DeviceTypeBand},
	{"vivosmart", domain.DeviceTypeBand},
	{"whoop", domain.DeviceTypeBand},
	{"smart band", domain.DeviceTypeBand},
}

// sourceNameDeviceTypes maps raw vendor source-name fragments to a device type.
// Used when the model lookup yields nothing.
var sourceNameDeviceTypes = []struct {
	substr     string
	deviceType domain.DeviceType
}{
	{"watch", domain.DeviceTypeWatch},
	{"ring", domain.DeviceTypeRing},
	{"phone", domain.DeviceTypePhone},
	{"scale", domain.DeviceTypeScale},
	{"band", domain.DeviceTypeBand},
}

// InferDeviceType classifies a device from its model string, falling back to
// substring inference over the raw vendor source name, then to unknown.
func InferDeviceType(deviceModel, originalSourceName string) domain.DeviceType {
	model := strings.ToLower(strings.TrimSpace(deviceModel))
	if model != "" {
		for _, entry := range modelDeviceTypes {
			if strings.Contains(model, entry.substr) {
				return entry.deviceType
			}
		}
	}

	source := strings.ToLower(strings.TrimSpace(originalSourceName))
	if source != "" {
		for _, entry := range sourceNameDeviceTypes {
			if strings.Contains(source, entry.substr) {
				return entry.deviceType
			}
		}
	}
	return domain.DeviceTypeUnknown
}
