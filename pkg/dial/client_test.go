package dial

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stoppedAppXML = `<?xml version="1.0"?>
<service xmlns="urn:dial-multiscreen-org:schemas:dial" dialVer="1.7">
  <name>Orange-DefaultReceiver-DEV</name>
  <options allowStop="true"/>
  <state>stopped</state>
  <link rel="run" href="run"/>
  <additionalData>
    <ocast:X_OCAST_App2AppURL xmlns:ocast="urn:cast-ocast-org:service:cast:1">wss://127.0.0.1:4433/ocast</ocast:X_OCAST_App2AppURL>
    <ocast:X_OCAST_Version xmlns:ocast="urn:cast-ocast-org:service:cast:1">1.0</ocast:X_OCAST_Version>
  </additionalData>
</service>`

const installableAppXML = `<?xml version="1.0"?>
<service xmlns="urn:dial-multiscreen-org:schemas:dial">
  <name>MyApp</name>
  <options allowStop="false"/>
  <state>installable=http://store.example/myapp</state>
</service>`

func TestGetParsesStoppedApp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Orange-DefaultReceiver-DEV", r.URL.Path)
		_, _ = w.Write([]byte(stoppedAppXML))
	}))
	defer srv.Close()

	c := New(nil)
	app, err := c.Get(t.Context(), srv.URL, "Orange-DefaultReceiver-DEV")
	require.NoError(t, err)
	assert.Equal(t, "Orange-DefaultReceiver-DEV", app.Name)
	assert.True(t, app.AllowStop)
	assert.Equal(t, StateStopped, app.State)
	assert.Equal(t, "run", app.InstancePath)
	assert.Equal(t, "wss://127.0.0.1:4433/ocast", app.WebSocketURL)
	assert.Equal(t, "1.0", app.Version)
}

func TestGetParsesInstallableState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(installableAppXML))
	}))
	defer srv.Close()

	c := New(nil)
	app, err := c.Get(t.Context(), srv.URL, "MyApp")
	require.NoError(t, err)
	assert.Equal(t, StateInstallable, app.State)
	assert.Equal(t, "http://store.example/myapp", app.InstallableURL)
}

func TestStartSucceedsOn2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(nil)
	err := c.Start(t.Context(), srv.URL, "MyApp")
	assert.NoError(t, err)
}

func TestStartFailsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(nil)
	err := c.Start(t.Context(), srv.URL, "MyApp")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestStopDeletesDerivedInstanceURL(t *testing.T) {
	var deleted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(stoppedAppXML))
		case http.MethodDelete:
			deleted = r.URL.Path
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c := New(nil)
	err := c.Stop(t.Context(), srv.URL, "Orange-DefaultReceiver-DEV")
	require.NoError(t, err)
	assert.Equal(t, "/Orange-DefaultReceiver-DEV/run", deleted)
}

func TestStopFailsWhenNotAllowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(installableAppXML))
	}))
	defer srv.Close()

	c := New(nil)
	err := c.Stop(t.Context(), srv.URL, "MyApp")
	assert.ErrorIs(t, err, ErrCannotStop)
}
