// Package ocast implements the three-layer OCast JSON message codec carried
// over the WebSocket: device layer (src/dst/type/id/status), application
// layer (service), and data layer (name/params/options).
package ocast

import "encoding/json"

// MessageType discriminates the three kinds of device-layer frame.
type MessageType string

const (
	TypeCommand MessageType = "command"
	TypeReply   MessageType = "reply"
	TypeEvent   MessageType = "event"
)

// Status is the device-layer outcome of a command, present only on replies.
type Status string

const (
	StatusOK                    Status = "ok"
	StatusJSONFormatError       Status = "json_format_error"
	StatusValueFormatError      Status = "value_format_error"
	StatusMissingMandatoryField Status = "missing_mandatory_field"
	StatusForbiddenUnsecureMode Status = "forbidden_unsecure_mode"
	StatusInternalError         Status = "internal_error"
	StatusUnknown               Status = "unknown"
)

var knownStatuses = map[Status]struct{}{
	StatusOK:                    {},
	StatusJSONFormatError:       {},
	StatusValueFormatError:      {},
	StatusMissingMandatoryField: {},
	StatusForbiddenUnsecureMode: {},
	StatusInternalError:         {},
}

// normalizeStatus maps any unrecognized wire token to StatusUnknown, per
// spec: "unknown (default for unrecognized tokens)".
func normalizeStatus(raw string) Status {
	s := Status(raw)
	if _, ok := knownStatuses[s]; ok {
		return s
	}
	return StatusUnknown
}

// Destination values used on the device layer.
const (
	DestinationBrowser  = "browser"
	DestinationSettings = "settings"
)

// DataLayer is the innermost layer: a named operation with opaque params
// and optional free-form options.
type DataLayer struct {
	Name    string          `json:"name"`
	Params  json.RawMessage `json:"params,omitempty"`
	Options json.RawMessage `json:"options,omitempty"`
}

// ApplicationLayer names the service a DataLayer command or event belongs
// to (e.g. "org.ocast.media").
type ApplicationLayer struct {
	Service string    `json:"service"`
	Data    DataLayer `json:"data"`
}

// DeviceLayer is the outermost frame exchanged over the WebSocket.
type DeviceLayer struct {
	Source      string           `json:"src,omitempty"`
	Destination string           `json:"dst,omitempty"`
	Type        MessageType      `json:"type"`
	ID          int64            `json:"id"`
	Status      *Status          `json:"status,omitempty"`
	Message     ApplicationLayer `json:"message"`
}

// rawDeviceLayer keeps "message" as an opaque JSON value so the data layer
// can be decoded in a second pass, once the service+name are known and the
// expected reply type (if any) has been looked up.
type rawDeviceLayer struct {
	Source      string          `json:"src,omitempty"`
	Destination string          `json:"dst,omitempty"`
	Type        MessageType     `json:"type"`
	ID          int64           `json:"id"`
	Status      *string         `json:"status,omitempty"`
	Message     json.RawMessage `json:"message"`
}

type rawApplicationLayer struct {
	Service string          `json:"service"`
	Data    json.RawMessage `json:"data"`
}

type rawDataLayer struct {
	Name    string          `json:"name"`
	Params  json.RawMessage `json:"params"`
	Options json.RawMessage `json:"options,omitempty"`
}
