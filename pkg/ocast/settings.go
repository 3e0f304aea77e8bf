package ocast

// ServiceSettingsDevice is the service name for device settings commands
// and events (never requires the receiver application to be running).
const ServiceSettingsDevice = "org.ocast.settings.device"

// ServiceSettingsInput is the service name for input settings commands
// (key presses, gamepad events); like device settings, routed to
// "settings" rather than "browser".
const ServiceSettingsInput = "org.ocast.settings.input"

// Settings data-layer operation names.
const (
	NameGetDeviceID     = "getDeviceID"
	NameGetUpdateStatus = "getUpdateStatus"
	NameUpdateStatus    = "updateStatus" // event
	NameKeyPressed      = "keyPressed"
	NameMouseEvent      = "mouseEvent"
	NameGamepadEvent    = "gamepadEvent"
)

// DeviceID is the reply payload for getDeviceID.
type DeviceID struct {
	Code Code   `json:"code"`
	ID   string `json:"id"`
}

// UpdateStatus is the reply/event payload for getUpdateStatus and the
// updateStatus event.
type UpdateStatus struct {
	Code     Code   `json:"code"`
	State    string `json:"state"`
	Version  string `json:"version,omitempty"`
	Progress int    `json:"progress,omitempty"`
}
