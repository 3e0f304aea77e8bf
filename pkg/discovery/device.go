package discovery

// Device is a discovered OCast receiver, hydrated from a UPnP device
// description that followed an SSDP response. Per spec, a Device is
// immutable once inserted into the engine's device set: a later response
// for the same UUID only refreshes the engine's internal last-seen
// timestamp, it never changes these fields.
type Device struct {
	// UUID is the device's UPnP UUID, extracted from the SSDP USN header
	// and confirmed against the UPnP description's UDN. It is the unique
	// key for the device set.
	UUID string
	// FriendlyName is the device's human-readable name.
	FriendlyName string
	// Manufacturer is the device vendor name.
	Manufacturer string
	// ModelName is the device model name.
	ModelName string
	// DialURL is the application base URL used by pkg/dial to control the
	// device's receiver applications.
	DialURL string
}
