// Package upnp implements the UPnP device-description HTTP+XML client: a
// single GET of a device's LOCATION URL, decoded into the handful of fields
// the discovery engine needs to hydrate a candidate into a Device.
package upnp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/beevik/etree"
)

// uuidPattern mirrors the SSDP USN UUID extraction rule; UPnP descriptions
// carry the same UUID in their UDN element (e.g. "uuid:b042f955-...").
var uuidPattern = regexp.MustCompile(`^uuid:([^:]*)`)

// Description holds the fields of a UPnP device description that the
// discovery engine needs to hydrate a candidate device.
type Description struct {
	UUID         string
	FriendlyName string
	Manufacturer string
	ModelName    string
	DialURL      string // from Application-DIAL-URL header, fallback Application-URL
}

// ErrIncomplete is returned when the response is missing one of the
// mandatory fields (UDN, friendlyName, manufacturer, modelName, dial URL).
var ErrIncomplete = errors.New("upnp: incomplete device description")

// Client fetches and parses UPnP device descriptions.
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

// Get issues an HTTP GET for location and parses the response as a UPnP
// device description. Returns ErrIncomplete if any mandatory field is
// missing; the caller (the discovery engine) treats that as "ignore this
// candidate this round".
func (c *Client) Get(ctx context.Context, location string) (Description, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return Description{}, fmt.Errorf("upnp: build request: %w", err)
	}
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Description{}, fmt.Errorf("upnp: get %s: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Description{}, fmt.Errorf("upnp: get %s: status %d", location, resp.StatusCode)
	}

	dialURL := resp.Header.Get("Application-DIAL-URL")
	if dialURL == "" {
		dialURL = resp.Header.Get("Application-URL")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Description{}, fmt.Errorf("upnp: read body %s: %w", location, err)
	}

	desc, err := parseDescription(body, dialURL)
	if err != nil {
		return Description{}, err
	}
	return desc, nil
}

func parseDescription(body []byte, dialURL string) (Description, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return Description{}, fmt.Errorf("upnp: parse xml: %w", err)
	}

	device := doc.FindElement("./root/device")
	if device == nil {
		return Description{}, ErrIncomplete
	}

	udn := elementText(device, "UDN")
	friendlyName := elementText(device, "friendlyName")
	manufacturer := elementText(device, "manufacturer")
	modelName := elementText(device, "modelName")

	if udn == "" || friendlyName == "" || manufacturer == "" || modelName == "" || dialURL == "" {
		return Description{}, ErrIncomplete
	}

	m := uuidPattern.FindStringSubmatch(udn)
	if m == nil {
		return Description{}, ErrIncomplete
	}

	return Description{
		UUID:         m[1],
		FriendlyName: friendlyName,
		Manufacturer: manufacturer,
		ModelName:    modelName,
		DialURL:      dialURL,
	}, nil
}

func elementText(parent *etree.Element, tag string) string {
	e := parent.FindElement(tag)
	if e == nil {
		return ""
	}
	return e.Text()
}
