package ocast

// Destination determines the device-layer "dst" for a command sent against
// the given service, per spec.md §4.H: media and custom commands route to
// the browser (and require the receiver application to be running); device
// and input settings commands route to "settings" and never require it.
func Destination(service string) string {
	switch service {
	case ServiceSettingsDevice, ServiceSettingsInput:
		return DestinationSettings
	default:
		return DestinationBrowser
	}
}

// RequiresApplication reports whether sending on the given service requires
// the receiver application to already be running (or started first).
func RequiresApplication(service string) bool {
	return Destination(service) == DestinationBrowser
}

// CustomEvent is the fallback representation for an event whose service is
// not one of the known OCast services, holding the raw name and params so
// the session can still dispatch it to a generic listener.
type CustomEvent struct {
	Service string
	Name    string
	Params  []byte
}
