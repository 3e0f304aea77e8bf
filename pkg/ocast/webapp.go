package ocast

import "fmt"

// ServiceWebApp is the service name used for web application lifecycle
// events delivered alongside the OCast command channel.
const ServiceWebApp = "org.ocast.webapp"

// WebApp data-layer operation names.
const NameConnectedStatus = "connectedStatus"

// WebAppStatus is the connection status carried by WebAppConnectedStatusEvent.
type WebAppStatus string

const (
	WebAppStatusConnected    WebAppStatus = "connected"
	WebAppStatusDisconnected WebAppStatus = "disconnected"
)

// WebAppConnectedStatusEvent reports whether the receiver application has
// attached to (or detached from) the app-to-app WebSocket channel.
type WebAppConnectedStatusEvent struct {
	Status WebAppStatus `json:"status"`
}

// UnmarshalJSON requires "status" to be present.
func (e *WebAppConnectedStatusEvent) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status *WebAppStatus `json:"status"`
	}
	if err := jsonUnmarshalStrict(data, &raw); err != nil {
		return err
	}
	if raw.Status == nil {
		return fmt.Errorf("ocast: connectedStatus event missing required field \"status\"")
	}
	e.Status = *raw.Status
	return nil
}
