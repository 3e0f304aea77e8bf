package session_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ocastgo/ocast/pkg/ocast"
	"github.com/ocastgo/ocast/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice simulates an OCast receiver: a DIAL HTTP endpoint plus an
// OCast WebSocket endpoint, both backed by httptest servers, grounded on
// the same httptest.Server + gorilla upgrader pattern used in
// pkg/transport/wsocket's tests.
type fakeDevice struct {
	t *testing.T

	mu      sync.Mutex
	appXML  string
	started bool

	dialSrv *httptest.Server
	wsSrv   *httptest.Server

	connMu sync.Mutex
	conn   *websocket.Conn

	received chan ocast.Frame
}

func newFakeDevice(t *testing.T, appXML string) *fakeDevice {
	t.Helper()
	d := &fakeDevice{t: t, appXML: appXML, received: make(chan ocast.Frame, 16)}

	d.dialSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			d.mu.Lock()
			xml := d.appXML
			d.mu.Unlock()
			_, _ = w.Write([]byte(xml))
		case http.MethodPost:
			d.mu.Lock()
			d.started = true
			d.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
		}
	}))
	t.Cleanup(d.dialSrv.Close)

	upgrader := websocket.Upgrader{}
	d.wsSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		d.connMu.Lock()
		d.conn = conn
		d.connMu.Unlock()

		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frame, err := ocast.DecodeFrame(payload)
			if err != nil {
				continue
			}
			d.received <- *frame
		}
	}))
	t.Cleanup(d.wsSrv.Close)

	return d
}

func (d *fakeDevice) wsHost() string {
	return strings.TrimPrefix(d.wsSrv.URL, "http://")
}

func (d *fakeDevice) send(t *testing.T, payload []byte) {
	t.Helper()
	require.Eventually(t, func() bool {
		d.connMu.Lock()
		defer d.connMu.Unlock()
		return d.conn != nil
	}, time.Second, 5*time.Millisecond)

	d.connMu.Lock()
	conn := d.conn
	d.connMu.Unlock()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

// replyOK sends a successful reply to the given command id with params.code
// = SUCCESS and the given result payload merged in.
func (d *fakeDevice) replyOK(t *testing.T, frame ocast.Frame, result map[string]any) {
	t.Helper()
	if result == nil {
		result = map[string]any{}
	}
	result["code"] = int(ocast.CodeSuccess)
	params, err := json.Marshal(result)
	require.NoError(t, err)

	status := ocast.StatusOK
	reply := ocast.DeviceLayer{
		Type:   ocast.TypeReply,
		ID:     frame.ID,
		Status: &status,
		Message: ocast.ApplicationLayer{
			Service: frame.Service,
			Data: ocast.DataLayer{
				Name:   frame.Name,
				Params: params,
			},
		},
	}
	payload, err := json.Marshal(reply)
	require.NoError(t, err)
	d.send(t, payload)
}

func (d *fakeDevice) sendConnectedStatus(t *testing.T) {
	t.Helper()
	payload := []byte(`{"dst":"browser","type":"event","id":0,"message":{"service":"org.ocast.webapp","data":{"name":"connectedStatus","params":{"status":"connected"}}}}`)
	d.send(t, payload)
}

func stoppedAppXML(name string, wsURL string) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<service xmlns="urn:dial-multiscreen-org:schemas:dial">
  <name>%s</name>
  <options allowStop="true"/>
  <state>stopped</state>
  <link rel="run" href="run"/>
  <additionalData>
    <ocast:X_OCAST_App2AppURL xmlns:ocast="urn:cast-ocast-org:service:cast:1">%s</ocast:X_OCAST_App2AppURL>
  </additionalData>
</service>`, name, wsURL)
}

func runningAppXML(name string) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<service xmlns="urn:dial-multiscreen-org:schemas:dial">
  <name>%s</name>
  <options allowStop="true"/>
  <state>running</state>
</service>`, name)
}

func TestConnectTransitionsToConnectedThenDisconnect(t *testing.T) {
	device := newFakeDevice(t, runningAppXML("App"))

	s, err := session.New()
	require.NoError(t, err)

	require.NoError(t, s.Connect(device.wsHost()))
	assert.Equal(t, session.StateConnected, s.State())

	require.NoError(t, s.Disconnect())
	assert.Equal(t, session.StateDisconnected, s.State())
}

func TestConnectWhileNotDisconnectedFailsBusy(t *testing.T) {
	device := newFakeDevice(t, runningAppXML("App"))
	s, err := session.New()
	require.NoError(t, err)
	require.NoError(t, s.Connect(device.wsHost()))
	defer s.Disconnect()

	err = s.Connect(device.wsHost())
	var ocastErr *ocast.Error
	require.ErrorAs(t, err, &ocastErr)
	assert.Equal(t, ocast.KindState, ocastErr.Kind)
}

func TestSettingsCommandNeverRequiresApplication(t *testing.T) {
	device := newFakeDevice(t, stoppedAppXML("App", "wss://unused"))
	s, err := session.New(session.WithHTTPClient(device.dialSrv.Client()))
	require.NoError(t, err)
	require.NoError(t, s.Connect(device.wsHost()))
	defer s.Disconnect()

	done := make(chan ocast.DeviceID, 1)
	s.GetDeviceID(func(id ocast.DeviceID) { done <- id }, func(err *ocast.Error) { t.Fatalf("unexpected failure: %v", err) })

	frame := <-device.received
	assert.Equal(t, ocast.ServiceSettingsDevice, frame.Service)
	assert.Equal(t, ocast.NameGetDeviceID, frame.Name)
	device.replyOK(t, frame, map[string]any{"id": "abc-123"})

	select {
	case id := <-done:
		assert.Equal(t, "abc-123", id.ID)
	case <-time.After(time.Second):
		t.Fatal("success continuation never fired")
	}
}

func TestStartApplicationWithConnectedEventScenario(t *testing.T) {
	device := newFakeDevice(t, "")
	device.mu.Lock()
	device.appXML = stoppedAppXML("Orange-DefaultReceiver-DEV", "wss://"+device.wsHost())
	device.mu.Unlock()

	s, err := session.New(
		session.WithHTTPClient(device.dialSrv.Client()),
		session.WithApplicationName("Orange-DefaultReceiver-DEV"),
	)
	require.NoError(t, err)
	s.SetDialBaseURL(device.dialSrv.URL)
	require.NoError(t, s.Connect(device.wsHost()))
	defer s.Disconnect()

	success := make(chan struct{}, 1)
	s.Play(0, func() { success <- struct{}{} }, func(err *ocast.Error) { t.Fatalf("unexpected failure: %v", err) })

	require.Eventually(t, func() bool {
		device.mu.Lock()
		defer device.mu.Unlock()
		return device.started
	}, time.Second, 5*time.Millisecond)

	device.sendConnectedStatus(t)

	frame := <-device.received
	assert.Equal(t, ocast.ServiceMedia, frame.Service)
	assert.Equal(t, ocast.NamePlay, frame.Name)
	device.replyOK(t, frame, nil)

	select {
	case <-success:
		assert.True(t, s.IsApplicationRunning())
	case <-time.After(2 * time.Second):
		t.Fatal("start+play success never fired")
	}
}

func TestGetMetadataReplyTypeMismatchFailsWithClientError(t *testing.T) {
	device := newFakeDevice(t, runningAppXML("App"))
	s, err := session.New(
		session.WithHTTPClient(device.dialSrv.Client()),
		session.WithApplicationName("App"),
	)
	require.NoError(t, err)
	s.SetDialBaseURL(device.dialSrv.URL)
	require.NoError(t, s.Connect(device.wsHost()))
	defer s.Disconnect()

	failure := make(chan *ocast.Error, 1)
	s.GetMetadata(func(ocast.MediaMetadata) { t.Fatal("unexpected success") }, func(err *ocast.Error) { failure <- err })

	frame := <-device.received
	// status=ok, code=SUCCESS, but params cannot parse as MediaMetadata's
	// required shape (duration is a string, not a number).
	badParams, _ := json.Marshal(map[string]any{"code": 0, "duration": "not-a-number"})
	status := ocast.StatusOK
	reply := ocast.DeviceLayer{
		Type:   ocast.TypeReply,
		ID:     frame.ID,
		Status: &status,
		Message: ocast.ApplicationLayer{
			Service: frame.Service,
			Data:    ocast.DataLayer{Name: frame.Name, Params: badParams},
		},
	}
	payload, _ := json.Marshal(reply)
	device.send(t, payload)

	select {
	case err := <-failure:
		assert.Equal(t, ocast.KindProtocol, err.Kind)
		assert.Equal(t, ocast.CodeClient, err.Code)
	case <-time.After(time.Second):
		t.Fatal("failure continuation never fired")
	}
}

func TestDisconnectionFailsPendingThenNotifiesListener(t *testing.T) {
	device := newFakeDevice(t, runningAppXML("App"))
	listener := &recordingListener{disconnected: make(chan error, 1)}
	s, err := session.New(
		session.WithHTTPClient(device.dialSrv.Client()),
		session.WithApplicationName("App"),
		session.WithEventListener(listener),
	)
	require.NoError(t, err)
	s.SetDialBaseURL(device.dialSrv.URL)
	require.NoError(t, s.Connect(device.wsHost()))

	failures := make(chan *ocast.Error, 3)
	for i := 0; i < 3; i++ {
		s.GetDeviceID(func(ocast.DeviceID) { t.Fatal("unexpected success") }, func(err *ocast.Error) { failures <- err })
	}

	for i := 0; i < 3; i++ {
		<-device.received
	}

	device.connMu.Lock()
	conn := device.conn
	device.connMu.Unlock()
	require.NoError(t, conn.Close())

	for i := 0; i < 3; i++ {
		select {
		case err := <-failures:
			assert.Equal(t, ocast.CodeDeviceLayer, err.Code)
		case <-time.After(2 * time.Second):
			t.Fatal("missing failure continuation")
		}
	}

	select {
	case <-listener.disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnection listener never fired")
	}

	require.Eventually(t, func() bool { return s.State() == session.StateDisconnected }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Connect(device.wsHost()))
	require.NoError(t, s.Disconnect())
}

type recordingListener struct {
	disconnected chan error
}

func (l *recordingListener) OnDisconnected(err error)              { l.disconnected <- err }
func (l *recordingListener) OnPlaybackStatus(ocast.PlaybackStatus) {}
func (l *recordingListener) OnMetadataChanged(ocast.MediaMetadata) {}
func (l *recordingListener) OnUpdateStatus(ocast.UpdateStatus)     {}
func (l *recordingListener) OnCustomEvent(ocast.CustomEvent)       {}
