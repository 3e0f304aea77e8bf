// Package discovery implements the OCast device discovery engine: a
// multicast SSDP state machine that periodically probes the local
// network, hydrates responding candidates into Devices via pkg/upnp, ages
// out devices that stop responding, and reports all of this on an Events
// channel.
//
// # Basic Usage
//
//	import (
//	    "context"
//	    "fmt"
//
//	    "github.com/ocastgo/ocast/pkg/discovery"
//	)
//
//	func main() {
//	    engine, err := discovery.NewEngine()
//	    if err != nil {
//	        panic(err)
//	    }
//	    defer engine.Stop()
//
//	    if !engine.Resume() {
//	        panic("failed to start discovery")
//	    }
//
//	    for event := range engine.Events {
//	        switch event.Type {
//	        case discovery.EventDeviceAdded:
//	            dev := event.Device
//	            fmt.Printf("found: %s (%s) at %s\n", dev.FriendlyName, dev.UUID, dev.DialURL)
//	        case discovery.EventDevicesRemoved:
//	            fmt.Printf("lost %d device(s)\n", len(event.Devices))
//	        case discovery.EventDiscoveryStopped:
//	            if event.Err != nil {
//	                fmt.Println("discovery stopped:", event.Err)
//	            }
//	        }
//	    }
//	}
//
// # State Machine
//
// The engine cycles over three states: Stopped, Paused, Running.
// Resume starts (or resumes) probing and returns false without changing
// state if the underlying socket cannot be opened or joined to the SSDP
// multicast group. Pause suspends probing and releases the socket while
// keeping the current device set. Stop clears the device set and emits a
// final devices-removed event (only when the set was non-empty) followed by
// discovery-stopped. An unsolicited socket
// failure forces the same transition as Stop, with the error attached to
// the discovery-stopped event.
//
// # Architecture
//
// The discovery package is built around these collaborators:
//
//   - Engine: the state machine, owns the device set and probe schedule
//   - pkg/ssdp: builds M-SEARCH requests, parses M-SEARCH responses
//   - pkg/transport/udpsocket: the close-safe multicast UDP socket
//   - pkg/upnp: fetches and parses the UPnP device description that
//     hydrates a responding candidate into a Device
//
// # API
// As long as the package is in early development (pre-v1.0.0), be aware, the API may change without a major version bump.
package discovery
