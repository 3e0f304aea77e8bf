package session

import "github.com/ocastgo/ocast/pkg/ocast"

// EventListener receives session-level notifications: the unsolicited
// disconnection signal, and every dispatched media/settings/custom event
// (spec.md §4.H "Event handling"). All methods are invoked through the
// session's callback dispatcher.
//
// A facade that wants to fan out to many listeners holds its own ordered
// set and implements EventListener once to forward to all of them; the
// session itself only ever holds the one slot (spec.md §9, "the session
// itself still needs one listener slot").
type EventListener interface {
	// OnDisconnected fires when the session transitions out of Connected
	// because of a transport failure that the caller did not request.
	OnDisconnected(err error)
	// OnPlaybackStatus fires for org.ocast.media/playbackStatus events.
	OnPlaybackStatus(status ocast.PlaybackStatus)
	// OnMetadataChanged fires for org.ocast.media/metadataChanged events.
	OnMetadataChanged(metadata ocast.MediaMetadata)
	// OnUpdateStatus fires for org.ocast.settings.device/updateStatus events.
	OnUpdateStatus(status ocast.UpdateStatus)
	// OnCustomEvent fires for any event whose service is not one of the
	// known OCast services.
	OnCustomEvent(event ocast.CustomEvent)
}
