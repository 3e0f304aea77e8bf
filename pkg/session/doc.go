// Package session implements the per-device OCast session described in
// spec.md §4.H: connect/disconnect over the OCast WebSocket, the
// command/reply round trip with its pending-reply table, event dispatch,
// and receiver-application lifecycle management via DIAL.
//
// # Basic Usage
//
//	import (
//	    "fmt"
//
//	    "github.com/ocastgo/ocast/pkg/ocast"
//	    "github.com/ocastgo/ocast/pkg/session"
//	)
//
//	func main() {
//	    s, err := session.New(session.WithApplicationName("Orange-DefaultReceiver-DEV"))
//	    if err != nil {
//	        panic(err)
//	    }
//	    s.SetDialBaseURL("http://192.168.1.40:8060/apps")
//
//	    if err := s.Connect("192.168.1.40"); err != nil {
//	        panic(err)
//	    }
//	    defer s.Disconnect()
//
//	    s.GetDeviceID(
//	        func(id ocast.DeviceID) { fmt.Println("device id:", id.ID) },
//	        func(err *ocast.Error) { fmt.Println("failed:", err) },
//	    )
//	}
//
// # State Machine
//
// A Session cycles over four states: Disconnected, Connecting, Connected,
// Disconnecting. Connect is only valid from Disconnected and fails
// immediately with a "busy" error otherwise; it blocks until the WebSocket
// handshake succeeds or fails. Disconnect is only valid from Connected; it
// blocks until every pending command has been failed and, if the session
// was not already being torn down by the caller, the event listener has
// been notified.
//
// # Architecture
//
// The session package is built around these collaborators:
//
//   - Session: the state machine, the pending-reply table, the sequence
//     counter, and the receiver-application lifecycle
//   - pkg/ocast: the three-layer command/reply/event codec
//   - pkg/transport/wsocket: the WebSocket transport (5 s connect timeout,
//     5 s keepalive, 4096-byte send limit, orderly close)
//   - pkg/dial: starts and stops the receiver application ahead of the
//     first browser-routed command
//   - pkg/callback: the dispatcher every externally visible continuation
//     and event is routed through
//
// # API
// As long as the package is in early development (pre-v1.0.0), be aware, the API may change without a major version bump.
package session
