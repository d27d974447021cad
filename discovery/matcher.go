package discovery

import "strings"

// DeviceMatcher accepts or rejects a discovered device.
type DeviceMatcher func(*Device) bool

// WithName matches the friendly name, ignoring case.
func WithName(name string) DeviceMatcher {
	return func(device *Device) bool {
		return device != nil && strings.EqualFold(device.Name(), name)
	}
}

// WithID matches a device by its id
func WithID(id string) DeviceMatcher {
	return func(device *Device) bool {
		return device != nil && device.ID() == id
	}
}

// WithType matches the model, ignoring case.
func WithType(t string) DeviceMatcher {
	return func(device *Device) bool {
		return device != nil && strings.EqualFold(device.Type(), t)
	}
}

// MatchAll accepts a device accepted by every matcher. No matchers accept
// any device.
func MatchAll(matchers ...DeviceMatcher) DeviceMatcher {
	return func(device *Device) bool {
		for _, m := range matchers {
			if !m(device) {
				return false
			}
		}
		return true
	}
}
