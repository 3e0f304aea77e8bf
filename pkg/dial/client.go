// Package dial implements the DIAL (Discovery-And-Launch) HTTP+XML client
// used to query, start, and stop the receiver application on an OCast
// device ahead of opening its OCast WebSocket.
package dial

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
)

// State is the lifecycle state of a DIAL application.
type State int

const (
	StateUnknown State = iota
	StateRunning
	StateStopped
	StateHidden
	StateInstallable
)

// App describes a DIAL application document, as returned by Get.
type App struct {
	Name           string
	AllowStop      bool
	State          State
	InstallableURL string // set only when State == StateInstallable
	InstancePath   string // from link[@href], used to build the stop URL

	// OCast additional data, from additionalData/ocast:X_OCAST_*.
	WebSocketURL string
	Version      string
}

// Client issues the three DIAL operations against a device's application
// base URL. All three are safe to call concurrently. Get and Start are a
// single HTTP round-trip each; Stop is two (a Get, then a DELETE). They are
// non-blocking from the caller's perspective once dispatched through a
// goroutine (the session layer does this dispatching).
type Client struct {
	httpClient *http.Client
}

// New creates a Client. A nil httpClient uses http.DefaultClient.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient}
}

// Get fetches and parses the DIAL application document at base/name.
func (c *Client) Get(ctx context.Context, base, name string) (App, error) {
	appURL := joinPath(base, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, appURL, nil)
	if err != nil {
		return App{}, fmt.Errorf("dial: build get request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return App{}, fmt.Errorf("dial: get %s: %w", appURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return App{}, &StatusError{URL: appURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return App{}, fmt.Errorf("dial: read body %s: %w", appURL, err)
	}

	return parseApp(body)
}

// Start issues an empty-body POST to base/name. Success is any 2xx status.
func (c *Client) Start(ctx context.Context, base, name string) error {
	appURL := joinPath(base, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, appURL, nil)
	if err != nil {
		return fmt.Errorf("dial: build start request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dial: start %s: %w", appURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{URL: appURL, StatusCode: resp.StatusCode}
	}
	return nil
}

// ErrCannotStop is returned by Stop when the application does not allow
// stopping, or no instance URL can be derived.
var ErrCannotStop = fmt.Errorf("dial: application cannot be stopped")

// Stop chains a Get to determine the instance URL, then issues an HTTP
// DELETE to it. Fails with ErrCannotStop if the application document does
// not allow stopping, or no instance URL can be derived.
func (c *Client) Stop(ctx context.Context, base, name string) error {
	app, err := c.Get(ctx, base, name)
	if err != nil {
		return err
	}
	if !app.AllowStop {
		return ErrCannotStop
	}

	instanceURL := instanceURL(base, name, app.InstancePath)
	if instanceURL == "" {
		return ErrCannotStop
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, instanceURL, nil)
	if err != nil {
		return fmt.Errorf("dial: build stop request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dial: stop %s: %w", instanceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{URL: instanceURL, StatusCode: resp.StatusCode}
	}
	return nil
}

// StatusError reports a non-2xx DIAL HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dial: %s returned status %d", e.URL, e.StatusCode)
}

func joinPath(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + name
}

// instanceURL derives the URL to DELETE in order to stop an application.
// Absolute link hrefs are used as-is; otherwise the instance path (or "run"
// if absent) is appended to the application's own URL.
func instanceURL(base, name, linkHref string) string {
	if linkHref == "" {
		return joinPath(joinPath(base, name), "run")
	}
	if u, err := url.Parse(linkHref); err == nil && u.IsAbs() {
		return linkHref
	}
	return joinPath(joinPath(base, name), linkHref)
}

func parseApp(body []byte) (App, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return App{}, fmt.Errorf("dial: parse xml: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return App{}, fmt.Errorf("dial: empty document")
	}

	app := App{Name: elementText(root, "name")}

	if opts := root.FindElement("options"); opts != nil {
		app.AllowStop = opts.SelectAttrValue("allowStop", "") == "true"
	}

	rawState := elementText(root, "state")
	app.State, app.InstallableURL = parseState(rawState)

	if link := root.FindElement("link"); link != nil {
		app.InstancePath = link.SelectAttrValue("href", "")
	}

	if extra := root.FindElement("additionalData"); extra != nil {
		// etree splits an "ocast:X_OCAST_App2AppURL" tag into namespace
		// prefix + local name, so looking up the local name alone is
		// independent of whichever prefix the device used.
		app.WebSocketURL = elementText(extra, "X_OCAST_App2AppURL")
		app.Version = elementText(extra, "X_OCAST_Version")
	}

	return app, nil
}

// parseState decodes the DIAL "state" text, including the
// "installable=<url>" convention for installable applications.
func parseState(raw string) (State, string) {
	switch {
	case strings.HasPrefix(raw, "installable="):
		return StateInstallable, strings.TrimPrefix(raw, "installable=")
	case raw == "running":
		return StateRunning, ""
	case raw == "stopped":
		return StateStopped, ""
	case raw == "hidden":
		return StateHidden, ""
	default:
		return StateUnknown, ""
	}
}

func elementText(parent *etree.Element, tag string) string {
	e := parent.FindElement(tag)
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.Text())
}

