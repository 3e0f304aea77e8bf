package discovery

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/ocastgo/ocast/pkg/ssdp"
	"github.com/ocastgo/ocast/pkg/transport/udpsocket"
	"github.com/ocastgo/ocast/pkg/upnp"
)

// State is the discovery engine's lifecycle state.
type State int

const (
	StateStopped State = iota
	StatePaused
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePaused:
		return "paused"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

const (
	// DefaultInterval is the probe cadence used when WithInterval is not
	// given.
	DefaultInterval = 30 * time.Second
	minInterval     = 5 * time.Second
	// DefaultMX is the MX value advertised in M-SEARCH requests when
	// WithMX is not given.
	DefaultMX       = 3
	defaultEventBuf = 64
	hydrateTimeout  = 5 * time.Second

	multicastHost = "239.255.255.250"
	multicastPort = 1900
)

// DefaultSearchTargets is the search target probed when WithSearchTargets
// is not given: the OCast cast service.
var DefaultSearchTargets = []string{"urn:cast-ocast-org:service:cast:1"}

// Logger defines a simple logging interface for the engine, shaped like
// slog.Logger.Log so any slog-compatible logger can be plugged in.
type Logger interface {
	Log(ctx context.Context, level slog.Level, msg string, args ...any)
}

// NoOpLogger discards everything. It is the default so callers never need
// a nil check.
type NoOpLogger struct{}

func (NoOpLogger) Log(context.Context, slog.Level, string, ...any) {}

// Engine is the SSDP-based OCast discovery state machine described in
// spec.md §4.C: it cycles between Stopped, Paused and Running, probing
// periodically while Running, hydrating candidates into Devices via UPnP,
// ageing out devices that stop responding, and reporting all of this on
// its Events channel.
//
// An Engine must be constructed with NewEngine and is safe for concurrent
// use.
type Engine struct {
	// Events is a read-only channel of device-added, devices-removed, and
	// discovery-stopped notifications.
	Events <-chan Event
	events chan Event

	socket     *udpsocket.Socket
	upnpClient *upnp.Client
	logger     Logger

	iface *net.Interface
	port  int
	mx    int

	mu             sync.Mutex
	state          State
	interval       time.Duration
	searchTargets  []string
	devices        map[string]*Device
	lastSeen       map[string]time.Time
	runCancel      context.CancelFunc
	userClosing    bool
	immediateProbe chan struct{}

	wg sync.WaitGroup
}

// NewEngine creates a discovery engine with the provided options. The
// engine starts Stopped; call Resume to begin probing.
//
// Example:
//
//	engine, err := discovery.NewEngine(
//	    discovery.WithInterval(30 * time.Second),
//	    discovery.WithLogger(myLogger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
//	if !engine.Resume() {
//	    log.Fatal("failed to start discovery")
//	}
//	for event := range engine.Events {
//	    switch event.Type {
//	    case discovery.EventDeviceAdded:
//	        fmt.Println("found", event.Device.FriendlyName)
//	    case discovery.EventDevicesRemoved:
//	        fmt.Println("lost", len(event.Devices), "devices")
//	    case discovery.EventDiscoveryStopped:
//	        fmt.Println("stopped", event.Err)
//	    }
//	}
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		state:          StateStopped,
		interval:       DefaultInterval,
		mx:             DefaultMX,
		searchTargets:  append([]string(nil), DefaultSearchTargets...),
		logger:         NoOpLogger{},
		devices:        make(map[string]*Device),
		lastSeen:       make(map[string]time.Time),
		immediateProbe: make(chan struct{}, 1),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	if e.upnpClient == nil {
		e.upnpClient = upnp.New(nil)
	}
	e.socket = udpsocket.New(udpsocket.WithLogger(e.logger))

	e.events = make(chan Event, defaultEventBuf)
	e.Events = e.events

	return e, nil
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Devices returns a snapshot of the currently known device set.
func (e *Engine) Devices() []*Device {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Device, 0, len(e.devices))
	for _, d := range e.devices {
		out = append(out, d)
	}
	return out
}

// Resume transitions Stopped or Paused to Running. From Stopped the device
// set is cleared first; from Paused it carries over. Opens the UDP socket
// and joins the SSDP multicast group; on failure the engine remains in its
// prior state and Resume returns false. Already Running is a no-op success.
func (e *Engine) Resume() bool {
	e.mu.Lock()
	if e.state == StateRunning {
		e.mu.Unlock()
		return true
	}
	if e.state == StateStopped {
		e.devices = make(map[string]*Device)
		e.lastSeen = make(map[string]time.Time)
	}
	e.mu.Unlock()

	if _, err := e.socket.Open(e.port, e); err != nil {
		e.logger.Log(context.Background(), slog.LevelWarn, "discovery: open socket failed", "err", err)
		return false
	}

	group := &net.UDPAddr{IP: net.ParseIP(multicastHost), Port: multicastPort}
	if err := e.socket.JoinMulticast(group, e.iface); err != nil {
		e.socket.Close()
		e.logger.Log(context.Background(), slog.LevelWarn, "discovery: join multicast failed", "err", err)
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())

	e.mu.Lock()
	e.runCancel = cancel
	e.state = StateRunning
	e.mu.Unlock()

	e.wg.Add(1)
	go e.probeLoop(ctx)

	return true
}

// Pause transitions Running to Paused: cancels probing, closes the socket,
// and keeps the device set intact. A no-op when not Running.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return
	}
	cancel := e.runCancel
	e.runCancel = nil
	e.state = StatePaused
	e.userClosing = true
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
	e.socket.Close()

	e.mu.Lock()
	e.userClosing = false
	e.mu.Unlock()
}

// Stop transitions Running or Paused to Stopped: cancels probing, closes
// the socket if open, clears the device set, then emits devices-removed
// (if the set was non-empty) followed by discovery-stopped with no error.
// A no-op when already Stopped.
func (e *Engine) Stop() {
	e.doStop(nil, true)
}

// doStop implements the shared Running/Paused -> Stopped transition for
// both a user-requested Stop and an unsolicited socket failure.
func (e *Engine) doStop(failureErr error, userInitiated bool) {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return
	}
	wasRunning := e.state == StateRunning
	cancel := e.runCancel
	e.runCancel = nil
	e.state = StateStopped
	if userInitiated {
		e.userClosing = true
	}
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
	if wasRunning {
		e.socket.Close()
	}

	e.mu.Lock()
	removed := make([]*Device, 0, len(e.devices))
	for _, d := range e.devices {
		removed = append(removed, d)
	}
	e.devices = make(map[string]*Device)
	e.lastSeen = make(map[string]time.Time)
	e.userClosing = false
	e.mu.Unlock()

	if len(removed) > 0 {
		e.emit(NewDevicesRemovedEvent(removed))
	}
	e.emit(NewDiscoveryStoppedEvent(failureErr))
}

// SetSearchTargets replaces the probed search targets. While Running this
// triggers an immediate probe against the new set.
func (e *Engine) SetSearchTargets(targets []string) {
	e.mu.Lock()
	e.searchTargets = append([]string(nil), targets...)
	running := e.state == StateRunning
	e.mu.Unlock()
	if running {
		e.signalImmediateProbe()
	}
}

// SetInterval changes the probe cadence, floored at 5 seconds. While
// Running this cancels and restarts the probe timer at the new cadence.
func (e *Engine) SetInterval(interval time.Duration) {
	e.mu.Lock()
	e.interval = flooredInterval(interval)
	running := e.state == StateRunning
	e.mu.Unlock()
	if running {
		e.signalImmediateProbe()
	}
}

func (e *Engine) signalImmediateProbe() {
	select {
	case e.immediateProbe <- struct{}{}:
	default:
	}
}

// probeLoop drives the periodic probe/age cycle until ctx is canceled. The
// first cycle runs immediately; later cycles run either on the fixed-rate
// timer or when woken early by signalImmediateProbe (search target or
// interval changes), at which point the timer is rearmed with whatever
// interval is current.
func (e *Engine) probeLoop(ctx context.Context) {
	defer e.wg.Done()

	e.runProbeCycle(ctx)

	for {
		e.mu.Lock()
		interval := e.interval
		e.mu.Unlock()

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-e.immediateProbe:
			timer.Stop()
			e.runProbeCycle(ctx)
		case <-timer.C:
			e.runProbeCycle(ctx)
		}
	}
}

func (e *Engine) runProbeCycle(ctx context.Context) {
	e.mu.Lock()
	targets := append([]string(nil), e.searchTargets...)
	mx := e.mx
	e.mu.Unlock()

	e.probeOnce(ctx, targets, mx)
	e.scheduleAging(ctx, mx)
}

// probeOnce sends an M-SEARCH for each target twice, hedging against UDP
// loss.
func (e *Engine) probeOnce(ctx context.Context, targets []string, mx int) {
	for _, st := range targets {
		req := ssdp.Request{Host: ssdp.MulticastAddr, MX: mx, ST: st}
		payload := req.Encode()
		for i := 0; i < 2; i++ {
			if err := e.socket.Send(payload, multicastHost, multicastPort); err != nil {
				e.logger.Log(ctx, slog.LevelWarn, "discovery: probe send failed", "target", st, "err", err)
			}
		}
	}
}

// scheduleAging arms a single one-shot aging task MX+1 seconds after the
// current tick; it removes any device whose latest response predates the
// tick.
func (e *Engine) scheduleAging(ctx context.Context, mx int) {
	tick := time.Now()
	delay := time.Duration(mx+1) * time.Second
	time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		e.ageDevices(tick)
	})
}

func (e *Engine) ageDevices(tick time.Time) {
	e.mu.Lock()
	var removed []*Device
	for uuid, device := range e.devices {
		seen, ok := e.lastSeen[uuid]
		if !ok || seen.Before(tick) {
			removed = append(removed, device)
			delete(e.devices, uuid)
			delete(e.lastSeen, uuid)
		}
	}
	e.mu.Unlock()

	if len(removed) > 0 {
		e.emit(NewDevicesRemovedEvent(removed))
	}
}

// OnDataReceived implements udpsocket.Sink: every received datagram is
// tried as an SSDP M-SEARCH response.
func (e *Engine) OnDataReceived(payload []byte, _ string) {
	resp, ok := ssdp.ParseResponse(payload)
	if !ok {
		return
	}
	e.handleResponse(resp)
}

// OnClosed implements udpsocket.Sink. A nil error or a user-requested
// close (Pause/Stop already in flight) is ignored; an unsolicited failure
// drives the engine to Stopped with the error attached, asynchronously so
// the socket's own receive loop can finish unwinding first.
func (e *Engine) OnClosed(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	userClosing := e.userClosing
	e.mu.Unlock()
	if userClosing {
		return
	}
	go e.doStop(err, false)
}

// handleResponse implements the dedup/hydration rule from spec.md §4.C:
// always refresh the candidate's last-seen timestamp; if it is not yet a
// realized device, hydrate it via one UPnP description fetch and insert it
// iff it is still absent once that completes.
func (e *Engine) handleResponse(resp ssdp.Response) {
	uuid := resp.UUID()
	if uuid == "" {
		return
	}
	now := time.Now()

	e.mu.Lock()
	e.lastSeen[uuid] = now
	_, known := e.devices[uuid]
	e.mu.Unlock()

	if known {
		return
	}

	e.wg.Add(1)
	go e.hydrate(uuid, resp.Location)
}

func (e *Engine) hydrate(uuid, location string) {
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), hydrateTimeout)
	defer cancel()

	desc, err := e.upnpClient.Get(ctx, location)
	if err != nil {
		e.logger.Log(ctx, slog.LevelDebug, "discovery: dropping candidate, description fetch failed", "uuid", uuid, "err", err)
		return
	}
	if desc.UUID != uuid {
		e.logger.Log(ctx, slog.LevelDebug, "discovery: dropping candidate, UDN/USN uuid mismatch", "usn_uuid", uuid, "udn_uuid", desc.UUID)
		return
	}

	device := &Device{
		UUID:         desc.UUID,
		FriendlyName: desc.FriendlyName,
		Manufacturer: desc.Manufacturer,
		ModelName:    desc.ModelName,
		DialURL:      desc.DialURL,
	}

	e.mu.Lock()
	if _, exists := e.devices[uuid]; exists {
		e.mu.Unlock()
		return
	}
	e.devices[uuid] = device
	e.mu.Unlock()

	e.emit(NewDeviceAddedEvent(device))
}

// emit sends an event non-blocking, dropping it (with a log line) if the
// Events channel is full.
func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.logger.Log(context.Background(), slog.LevelWarn, "discovery: event channel full, dropping event", "type", ev.Type)
	}
}
