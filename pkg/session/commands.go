package session

import "github.com/ocastgo/ocast/pkg/ocast"

func decodeAs[T any](raw []byte) (any, error) {
	var v T
	if err := ocast.DecodeInto(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// none is the "no reply payload" decode descriptor: the pending entry's
// success continuation is invoked with a nil result.
func none(onSuccess func()) func(any) {
	return func(any) { onSuccess() }
}

// PrepareMedia issues org.ocast.media/prepare, per spec.md §8 scenario 6.
// authCookie, if non-empty, is carried in the command's options.
func (s *Session) PrepareMedia(media ocast.PrepareMedia, authCookie string, onSuccess func(), onFailure FailureFunc) {
	var options any
	if authCookie != "" {
		options = ocast.PrepareMediaOptions{AuthCookie: authCookie}
	}
	s.sendCommand(ocast.ServiceMedia, ocast.NamePrepare, media, options, nil, none(onSuccess), onFailure)
}

// Play issues org.ocast.media/play.
func (s *Session) Play(position float64, onSuccess func(), onFailure FailureFunc) {
	params := struct {
		Position float64 `json:"position"`
	}{position}
	s.sendCommand(ocast.ServiceMedia, ocast.NamePlay, params, nil, nil, none(onSuccess), onFailure)
}

// Pause issues org.ocast.media/pause.
func (s *Session) Pause(onSuccess func(), onFailure FailureFunc) {
	s.sendCommand(ocast.ServiceMedia, ocast.NamePause, nil, nil, nil, none(onSuccess), onFailure)
}

// StopPlayback issues org.ocast.media/stop.
func (s *Session) StopPlayback(onSuccess func(), onFailure FailureFunc) {
	s.sendCommand(ocast.ServiceMedia, ocast.NameStop, nil, nil, nil, none(onSuccess), onFailure)
}

// ResumePlayback issues org.ocast.media/resume.
func (s *Session) ResumePlayback(onSuccess func(), onFailure FailureFunc) {
	s.sendCommand(ocast.ServiceMedia, ocast.NameResume, nil, nil, nil, none(onSuccess), onFailure)
}

// Seek issues org.ocast.media/seek.
func (s *Session) Seek(position float64, onSuccess func(), onFailure FailureFunc) {
	params := struct {
		Position float64 `json:"position"`
	}{position}
	s.sendCommand(ocast.ServiceMedia, ocast.NameSeek, params, nil, nil, none(onSuccess), onFailure)
}

// SetVolume issues org.ocast.media/setVolume.
func (s *Session) SetVolume(volume float64, onSuccess func(), onFailure FailureFunc) {
	params := struct {
		Volume float64 `json:"volume"`
	}{volume}
	s.sendCommand(ocast.ServiceMedia, ocast.NameSetVolume, params, nil, nil, none(onSuccess), onFailure)
}

// Mute issues org.ocast.media/mute.
func (s *Session) Mute(muted bool, onSuccess func(), onFailure FailureFunc) {
	params := struct {
		Mute bool `json:"mute"`
	}{muted}
	s.sendCommand(ocast.ServiceMedia, ocast.NameMute, params, nil, nil, none(onSuccess), onFailure)
}

// GetPlaybackStatus issues org.ocast.media/getPlaybackStatus.
func (s *Session) GetPlaybackStatus(onSuccess func(ocast.PlaybackStatus), onFailure FailureFunc) {
	s.sendCommand(ocast.ServiceMedia, ocast.NameGetPlaybackStat, nil, nil, decodeAs[ocast.PlaybackStatus],
		func(v any) { onSuccess(v.(ocast.PlaybackStatus)) }, onFailure)
}

// GetMetadata issues org.ocast.media/getMetadata.
func (s *Session) GetMetadata(onSuccess func(ocast.MediaMetadata), onFailure FailureFunc) {
	s.sendCommand(ocast.ServiceMedia, ocast.NameGetMetadata, nil, nil, decodeAs[ocast.MediaMetadata],
		func(v any) { onSuccess(v.(ocast.MediaMetadata)) }, onFailure)
}

// GetDeviceID issues org.ocast.settings.device/getDeviceID.
func (s *Session) GetDeviceID(onSuccess func(ocast.DeviceID), onFailure FailureFunc) {
	s.sendCommand(ocast.ServiceSettingsDevice, ocast.NameGetDeviceID, nil, nil, decodeAs[ocast.DeviceID],
		func(v any) { onSuccess(v.(ocast.DeviceID)) }, onFailure)
}

// GetUpdateStatus issues org.ocast.settings.device/getUpdateStatus.
func (s *Session) GetUpdateStatus(onSuccess func(ocast.UpdateStatus), onFailure FailureFunc) {
	s.sendCommand(ocast.ServiceSettingsDevice, ocast.NameGetUpdateStatus, nil, nil, decodeAs[ocast.UpdateStatus],
		func(v any) { onSuccess(v.(ocast.UpdateStatus)) }, onFailure)
}

// KeyPressed issues org.ocast.settings.input/keyPressed.
func (s *Session) KeyPressed(params any, onSuccess func(), onFailure FailureFunc) {
	s.sendCommand(ocast.ServiceSettingsInput, ocast.NameKeyPressed, params, nil, nil, none(onSuccess), onFailure)
}

// MouseEvent issues org.ocast.settings.input/mouseEvent.
func (s *Session) MouseEvent(params any, onSuccess func(), onFailure FailureFunc) {
	s.sendCommand(ocast.ServiceSettingsInput, ocast.NameMouseEvent, params, nil, nil, none(onSuccess), onFailure)
}

// GamepadEvent issues org.ocast.settings.input/gamepadEvent.
func (s *Session) GamepadEvent(params any, onSuccess func(), onFailure FailureFunc) {
	s.sendCommand(ocast.ServiceSettingsInput, ocast.NameGamepadEvent, params, nil, nil, none(onSuccess), onFailure)
}
