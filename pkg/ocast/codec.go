package ocast

import (
	"encoding/json"
	"fmt"
)

// EncodeCommand serializes a COMMAND device layer. Null/zero optional
// fields (status, options) are omitted from the wire payload; status never
// appears on a command frame.
func EncodeCommand(src, dst string, id int64, service, name string, params, options any) ([]byte, error) {
	rawParams, err := marshalOrNil(params)
	if err != nil {
		return nil, fmt.Errorf("ocast: encode params: %w", err)
	}
	rawOptions, err := marshalOrNil(options)
	if err != nil {
		return nil, fmt.Errorf("ocast: encode options: %w", err)
	}

	frame := DeviceLayer{
		Source:      src,
		Destination: dst,
		Type:        TypeCommand,
		ID:          id,
		Message: ApplicationLayer{
			Service: service,
			Data: DataLayer{
				Name:    name,
				Params:  rawParams,
				Options: rawOptions,
			},
		},
	}
	return json.Marshal(frame)
}

func marshalOrNil(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Frame is the result of the two-step decode of an incoming WebSocket text
// message: the device layer is parsed eagerly, but params/options stay
// opaque until the caller (who knows the expected reply type, or the
// service+name for an event) decodes them.
type Frame struct {
	Source      string
	Destination string
	Type        MessageType
	ID          int64
	Status      *Status
	Service     string
	Name        string
	RawParams   json.RawMessage
	RawOptions  json.RawMessage
}

// DecodeFrame parses an incoming WebSocket text message's device, application
// and data layers, keeping params/options as raw JSON. Returns an error if
// the payload is not valid JSON or is missing a required field; such errors
// are logged and dropped by the caller, never propagated further.
func DecodeFrame(payload []byte) (*Frame, error) {
	var raw rawDeviceLayer
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("ocast: decode device layer: %w", err)
	}
	if raw.Type == "" {
		return nil, fmt.Errorf("ocast: missing device layer type")
	}

	var app rawApplicationLayer
	if err := json.Unmarshal(raw.Message, &app); err != nil {
		return nil, fmt.Errorf("ocast: decode application layer: %w", err)
	}
	if app.Service == "" {
		return nil, fmt.Errorf("ocast: missing application layer service")
	}

	var data rawDataLayer
	if err := json.Unmarshal(app.Data, &data); err != nil {
		return nil, fmt.Errorf("ocast: decode data layer: %w", err)
	}
	if data.Name == "" {
		return nil, fmt.Errorf("ocast: missing data layer name")
	}

	f := &Frame{
		Source:      raw.Source,
		Destination: raw.Destination,
		Type:        raw.Type,
		ID:          raw.ID,
		Service:     app.Service,
		Name:        data.Name,
		RawParams:   data.Params,
		RawOptions:  data.Options,
	}
	if raw.Status != nil {
		s := normalizeStatus(*raw.Status)
		f.Status = &s
	}
	return f, nil
}

// replyCode is the envelope every reply's params carries, per spec.md §3
// ("a nested params.code equal to SUCCESS (0) is required before the
// payload is handed to the caller").
type replyCode struct {
	Code Code `json:"code"`
}

// ReplyCode extracts params.code without requiring the full reply type.
func ReplyCode(raw json.RawMessage) (Code, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("ocast: reply has no params")
	}
	var env replyCode
	if err := json.Unmarshal(raw, &env); err != nil {
		return 0, fmt.Errorf("ocast: decode reply code: %w", err)
	}
	return env.Code, nil
}

// DecodeInto unmarshals raw into v. Used once a reply's status is OK and
// its params.code is SUCCESS, or for decoding an event's params.
func DecodeInto(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("ocast: decode payload: %w", err)
	}
	return nil
}
