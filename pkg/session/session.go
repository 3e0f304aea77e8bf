// Package session implements the per-device OCast session state machine
// described in spec.md §4.H: connect/disconnect over the WebSocket
// transport, the command/reply round trip with its pending-reply table,
// event dispatch, and receiver-application lifecycle management via DIAL.
package session

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ocastgo/ocast/pkg/callback"
	"github.com/ocastgo/ocast/pkg/dial"
	"github.com/ocastgo/ocast/pkg/ocast"
	"github.com/ocastgo/ocast/pkg/transport/wsocket"
)

// State is the session's lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// appReadyTimeout is how long startApplication waits for a
// WebAppConnectedStatusEvent CONNECTED before failing (spec.md §5).
const appReadyTimeout = 60 * time.Second

// dialTimeout bounds every individual DIAL round trip the session issues.
const dialTimeout = 10 * time.Second

// Logger is a slog-compatible logging seam.
type Logger interface {
	Log(ctx context.Context, level slog.Level, msg string, args ...any)
}

// NoOpLogger discards everything. It is the default so callers never need
// a nil check.
type NoOpLogger struct{}

func (NoOpLogger) Log(context.Context, slog.Level, string, ...any) {}

// FailureFunc is the uniform failure continuation passed to every command.
type FailureFunc func(err *ocast.Error)

// Session is a single OCast device connection: one WebSocket, one pending-
// reply table, one receiver application. A Session must be constructed with
// New and is safe for concurrent use.
type Session struct {
	logger     Logger
	dispatcher callback.Dispatcher
	httpClient *http.Client
	tlsConfig  *tls.Config
	listener   EventListener

	dial      *dial.Client
	transport *wsocket.Socket
	clientID  string

	pending *pendingTable
	seq     seqGenerator

	mu          sync.Mutex
	state       State
	host        string
	dialBaseURL string
	appName     string
	appRunning  bool
	appReadyCh  chan error
	userClosing bool
	connectCh   chan error
}

// New creates a disconnected Session.
func New(opts ...Option) (*Session, error) {
	s := &Session{
		state:      StateDisconnected,
		logger:     NoOpLogger{},
		dispatcher: callback.Identity,
		pending:    newPendingTable(),
		clientID:   uuid.NewString(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.dial = dial.New(s.httpClient)

	wsOpts := []wsocket.Option{wsocket.WithLogger(s.logger)}
	if s.tlsConfig != nil {
		wsOpts = append(wsOpts, wsocket.WithTLSConfig(s.tlsConfig))
	}
	s.transport = wsocket.New(wsOpts...)

	return s, nil
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsApplicationRunning reports whether the receiver application is known to
// be running.
func (s *Session) IsApplicationRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appRunning
}

// SetApplicationName sets the receiver application name used by browser-
// routed commands. Changing it away from the current value clears the
// running flag and releases any outstanding application-ready latch,
// causing an in-flight startApplication to fail (spec.md §4.H).
func (s *Session) SetApplicationName(name string) {
	s.mu.Lock()
	changed := s.appName != name
	s.appName = name
	var ready chan error
	if changed {
		s.appRunning = false
		ready = s.appReadyCh
		s.appReadyCh = nil
	}
	s.mu.Unlock()

	if ready != nil {
		ready <- errors.New("session: application name changed")
	}
}

// SetDialBaseURL sets the DIAL application base URL (typically obtained
// from a discovered Device's DialURL) used to start/stop the receiver
// application.
func (s *Session) SetDialBaseURL(baseURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialBaseURL = baseURL
}

// Connect opens the WebSocket to host (ws://host:4434/ocast, or
// wss://host:4433/ocast if WithTLSConfig was given) and blocks until the
// connection succeeds or fails. Fails immediately with a "busy" error if the
// session is not currently Disconnected.
func (s *Session) Connect(host string) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return busyError()
	}
	s.state = StateConnecting
	s.host = host
	connected := make(chan error, 1)
	s.connectCh = connected
	s.mu.Unlock()

	if err := s.transport.Connect(host, s); err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.connectCh = nil
		s.mu.Unlock()
		return ocast.NewError(ocast.KindTransport, ocast.CodeClient, "session: connect failed", err)
	}

	return <-connected
}

// Disconnect requests an orderly close. It blocks until the disconnection
// cleanup (failing pending commands) has run. A no-op error if the session
// is not currently Connected.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return ocast.NewError(ocast.KindState, ocast.CodeClient, "session: disconnect while not connected", nil)
	}
	s.state = StateDisconnecting
	s.userClosing = true
	ready := s.appReadyCh
	s.appReadyCh = nil
	s.mu.Unlock()

	if ready != nil {
		ready <- errors.New("session: disconnecting")
	}

	s.transport.Close()
	return nil
}

func busyError() *ocast.Error {
	return ocast.NewError(ocast.KindState, ocast.CodeClient, "session: connect while not disconnected (busy)", nil)
}

// OnOpen implements wsocket.Sink: the WebSocket handshake succeeded.
func (s *Session) OnOpen() {
	s.mu.Lock()
	if s.state == StateConnecting {
		s.state = StateConnected
	}
	ch := s.connectCh
	s.connectCh = nil
	s.mu.Unlock()

	if ch != nil {
		ch <- nil
	}
}

// OnClose implements wsocket.Sink. While Connecting this fails the pending
// Connect call. While Connected or Disconnecting this runs the
// disconnection cleanup: fail every pending command, then — only if the
// disconnection was not requested by the caller — notify the listener
// (spec.md §4.H, §5 ordering guarantee).
func (s *Session) OnClose(err error) {
	s.mu.Lock()
	prevState := s.state
	connectCh := s.connectCh
	s.connectCh = nil
	userClosing := s.userClosing
	s.userClosing = false
	s.state = StateDisconnected
	s.appRunning = false
	appReadyCh := s.appReadyCh
	s.appReadyCh = nil
	s.mu.Unlock()

	if appReadyCh != nil {
		appReadyCh <- errors.New("session: socket disconnected")
	}

	if prevState == StateConnecting {
		failErr := err
		if failErr == nil {
			failErr = errors.New("session: connect failed")
		}
		if connectCh != nil {
			connectCh <- failErr
		}
		return
	}

	entries := s.pending.drain()
	disErr := ocast.NewError(ocast.KindTransport, ocast.CodeDeviceLayer, "socket disconnected", err)
	for _, e := range entries {
		entry := e
		s.dispatch(func() { entry.onFailure(disErr) })
	}

	if !userClosing && s.listener != nil {
		listener := s.listener
		s.dispatch(func() { listener.OnDisconnected(err) })
	}
}

// OnMessage implements wsocket.Sink: every incoming text frame is decoded
// and routed to the reply or event handler. Unparseable frames are logged
// and dropped, never propagated to a caller (spec.md §7).
func (s *Session) OnMessage(text string) {
	frame, err := ocast.DecodeFrame([]byte(text))
	if err != nil {
		s.logger.Log(context.Background(), slog.LevelDebug, "session: dropping unparseable frame", "err", err)
		return
	}

	switch frame.Type {
	case ocast.TypeReply:
		s.handleReply(frame)
	case ocast.TypeEvent:
		s.handleEvent(frame)
	default:
		s.logger.Log(context.Background(), slog.LevelDebug, "session: dropping frame of unexpected type", "type", frame.Type)
	}
}

func (s *Session) handleReply(frame *ocast.Frame) {
	entry, ok := s.pending.remove(frame.ID)
	if !ok {
		s.logger.Log(context.Background(), slog.LevelDebug, "session: dropping orphan reply", "id", frame.ID)
		return
	}

	if frame.Status == nil {
		s.dispatch(func() {
			entry.onFailure(ocast.NewError(ocast.KindProtocol, ocast.CodeDeviceLayer, "missing device layer status", nil))
		})
		return
	}
	if *frame.Status != ocast.StatusOK {
		status := *frame.Status
		s.dispatch(func() {
			entry.onFailure(ocast.NewError(ocast.KindProtocol, ocast.CodeDeviceLayer, string(status), nil))
		})
		return
	}

	code, err := ocast.ReplyCode(frame.RawParams)
	if err != nil {
		s.dispatch(func() {
			entry.onFailure(ocast.NewError(ocast.KindProtocol, ocast.CodeClient, "session: decode reply code", err))
		})
		return
	}
	if code != ocast.CodeSuccess {
		s.dispatch(func() { entry.onFailure(ocast.NewError(ocast.KindProtocol, code, "", nil)) })
		return
	}

	if entry.decode == nil {
		s.dispatch(func() { entry.onSuccess(nil) })
		return
	}
	result, err := entry.decode(frame.RawParams)
	if err != nil {
		s.dispatch(func() {
			entry.onFailure(ocast.NewError(ocast.KindProtocol, ocast.CodeClient, "session: decode reply payload", err))
		})
		return
	}
	s.dispatch(func() { entry.onSuccess(result) })
}

func (s *Session) handleEvent(frame *ocast.Frame) {
	switch frame.Service {
	case ocast.ServiceWebApp:
		s.handleWebAppEvent(frame)
	case ocast.ServiceMedia:
		s.handleMediaEvent(frame)
	case ocast.ServiceSettingsDevice:
		s.handleSettingsEvent(frame)
	default:
		if s.listener == nil {
			return
		}
		listener := s.listener
		ev := ocast.CustomEvent{Service: frame.Service, Name: frame.Name, Params: frame.RawParams}
		s.dispatch(func() { listener.OnCustomEvent(ev) })
	}
}

func (s *Session) handleWebAppEvent(frame *ocast.Frame) {
	if frame.Name != ocast.NameConnectedStatus {
		return
	}
	var ev ocast.WebAppConnectedStatusEvent
	if err := ocast.DecodeInto(frame.RawParams, &ev); err != nil {
		s.logger.Log(context.Background(), slog.LevelDebug, "session: dropping unparseable connectedStatus event", "err", err)
		return
	}

	switch ev.Status {
	case ocast.WebAppStatusConnected:
		s.setAppRunning(true)
		s.releaseAppReadyLatch(nil)
	case ocast.WebAppStatusDisconnected:
		s.setAppRunning(false)
	}
}

func (s *Session) handleMediaEvent(frame *ocast.Frame) {
	if s.listener == nil {
		return
	}
	listener := s.listener

	switch frame.Name {
	case ocast.NamePlaybackStatus:
		var status ocast.PlaybackStatus
		if err := ocast.DecodeInto(frame.RawParams, &status); err != nil {
			s.logger.Log(context.Background(), slog.LevelDebug, "session: dropping unparseable playbackStatus event", "err", err)
			return
		}
		s.dispatch(func() { listener.OnPlaybackStatus(status) })
	case ocast.NameMetadataChanged:
		var metadata ocast.MediaMetadata
		if err := ocast.DecodeInto(frame.RawParams, &metadata); err != nil {
			s.logger.Log(context.Background(), slog.LevelDebug, "session: dropping unparseable metadataChanged event", "err", err)
			return
		}
		s.dispatch(func() { listener.OnMetadataChanged(metadata) })
	}
}

func (s *Session) handleSettingsEvent(frame *ocast.Frame) {
	if s.listener == nil || frame.Name != ocast.NameUpdateStatus {
		return
	}
	listener := s.listener

	var status ocast.UpdateStatus
	if err := ocast.DecodeInto(frame.RawParams, &status); err != nil {
		s.logger.Log(context.Background(), slog.LevelDebug, "session: dropping unparseable updateStatus event", "err", err)
		return
	}
	s.dispatch(func() { listener.OnUpdateStatus(status) })
}

func (s *Session) releaseAppReadyLatch(err error) {
	s.mu.Lock()
	ch := s.appReadyCh
	s.appReadyCh = nil
	s.mu.Unlock()
	if ch != nil {
		ch <- err
	}
}

func (s *Session) setAppRunning(running bool) {
	s.mu.Lock()
	s.appRunning = running
	s.mu.Unlock()
}

func (s *Session) dispatch(fn func()) {
	s.dispatcher(fn)()
}

func (s *Session) snapshot() (State, string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.dialBaseURL, s.appName
}

// sendCommand is the generic command-send primitive from spec.md §4.H. decode
// is nil when the expected reply type is "none". options may be nil.
func (s *Session) sendCommand(service, name string, params, options any, decode func([]byte) (any, error), onSuccess func(any), onFailure FailureFunc) {
	state, _, appName := s.snapshot()
	if state != StateConnected {
		s.dispatch(func() {
			onFailure(ocast.NewError(ocast.KindState, ocast.CodeClient, "session: command sent while not connected", nil))
		})
		return
	}

	id := s.seq.next()
	entry := &pendingEntry{onSuccess: onSuccess, onFailure: onFailure}
	if decode != nil {
		entry.decode = func(raw json.RawMessage) (any, error) { return decode(raw) }
	}
	s.pending.insert(id, entry)

	payload, err := ocast.EncodeCommand(s.clientID, ocast.Destination(service), id, service, name, params, options)
	if err != nil {
		s.pending.remove(id)
		s.dispatch(func() {
			onFailure(ocast.NewError(ocast.KindProtocol, ocast.CodeClient, "session: encode command", err))
		})
		return
	}

	send := func() {
		if !s.transport.Send(string(payload)) {
			s.pending.remove(id)
			s.dispatch(func() {
				onFailure(ocast.NewError(ocast.KindTransport, ocast.CodeClient, "session: unable to send", nil))
			})
		}
	}

	if ocast.RequiresApplication(service) && !s.IsApplicationRunning() {
		s.startApplication(appName, send, func(startErr *ocast.Error) {
			s.pending.remove(id)
			s.dispatch(func() { onFailure(startErr) })
		})
		return
	}

	send()
}

// StartApplication drives the receiver application lifecycle described in
// spec.md §4.H: fetch the DIAL application document, succeed immediately if
// already running, otherwise POST start and wait up to 60 s for a
// WebAppConnectedStatusEvent CONNECTED.
func (s *Session) StartApplication(name string, onSuccess func(), onFailure FailureFunc) {
	s.startApplication(name, func() { s.dispatch(onSuccess) }, func(err *ocast.Error) { s.dispatch(func() { onFailure(err) }) })
}

func (s *Session) startApplication(name string, onSuccess func(), onFailure FailureFunc) {
	if name == "" {
		onFailure(ocast.NewError(ocast.KindState, ocast.CodeClient, "session: application name not defined", nil))
		return
	}

	state, baseURL, _ := s.snapshot()
	switch state {
	case StateConnecting, StateDisconnecting, StateDisconnected:
		onFailure(ocast.NewError(ocast.KindState, ocast.CodeClient, fmt.Sprintf("session: cannot start application while %s", state), nil))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()

		app, err := s.dial.Get(ctx, baseURL, name)
		if err != nil {
			onFailure(ocast.NewError(ocast.KindTransport, ocast.CodeClient, "session: dial get failed", err))
			return
		}
		if app.State == dial.StateRunning {
			s.setAppRunning(true)
			onSuccess()
			return
		}

		ready := make(chan error, 1)
		s.mu.Lock()
		s.appName = name
		s.appReadyCh = ready
		s.mu.Unlock()

		if err := s.dial.Start(ctx, baseURL, name); err != nil {
			s.mu.Lock()
			if s.appReadyCh == ready {
				s.appReadyCh = nil
			}
			s.mu.Unlock()
			onFailure(ocast.NewError(ocast.KindTransport, ocast.CodeClient, "session: dial start failed", err))
			return
		}

		select {
		case waitErr := <-ready:
			if waitErr != nil {
				onFailure(ocast.NewError(ocast.KindState, ocast.CodeClient, "session: web-app connected event not received", waitErr))
				return
			}
			s.setAppRunning(true)
			onSuccess()
		case <-time.After(appReadyTimeout):
			s.mu.Lock()
			if s.appReadyCh == ready {
				s.appReadyCh = nil
			}
			s.mu.Unlock()
			onFailure(ocast.NewError(ocast.KindState, ocast.CodeClient, "session: web-app connected event not received", nil))
		}
	}()
}

// StopApplication issues a DIAL Stop and, on success, clears the running
// flag (spec.md §4.H).
func (s *Session) StopApplication(name string, onSuccess func(), onFailure FailureFunc) {
	_, baseURL, _ := s.snapshot()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()

		if err := s.dial.Stop(ctx, baseURL, name); err != nil {
			s.dispatch(func() {
				onFailure(ocast.NewError(ocast.KindTransport, ocast.CodeClient, "session: dial stop failed", err))
			})
			return
		}
		s.setAppRunning(false)
		s.dispatch(onSuccess)
	}()
}
