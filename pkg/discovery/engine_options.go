package discovery

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ocastgo/ocast/pkg/upnp"
)

// Option configures an Engine during construction with NewEngine.
type Option func(*Engine) error

// WithSearchTargets sets the initial set of SSDP search targets (ST values)
// the engine probes for. Default: the single OCast cast service URN.
func WithSearchTargets(targets ...string) Option {
	return func(e *Engine) error {
		if len(targets) == 0 {
			return errors.New("discovery: at least one search target required")
		}
		e.searchTargets = append([]string(nil), targets...)
		return nil
	}
}

// WithInterval sets the probe cadence. Values below 5 seconds are floored
// to 5 seconds, per spec. Default: 30 seconds.
func WithInterval(interval time.Duration) Option {
	return func(e *Engine) error {
		e.interval = flooredInterval(interval)
		return nil
	}
}

// WithMX sets the MX value (seconds a responder should randomize its reply
// over) advertised in every M-SEARCH request, and the aging task is
// scheduled at MX+1 second after each probe. Default: 3.
func WithMX(mx int) Option {
	return func(e *Engine) error {
		if mx <= 0 {
			return errors.New("discovery: mx must be positive")
		}
		e.mx = mx
		return nil
	}
}

// WithLocalPort binds the engine's UDP socket to a fixed local port instead
// of an ephemeral one. 0 (the default) picks any free port.
func WithLocalPort(port int) Option {
	return func(e *Engine) error {
		if port < 0 {
			return errors.New("discovery: port must be >= 0")
		}
		e.port = port
		return nil
	}
}

// WithInterface restricts multicast send/receive to the given network
// interface. Nil (the default) lets the OS choose.
func WithInterface(iface *net.Interface) Option {
	return func(e *Engine) error {
		e.iface = iface
		return nil
	}
}

// WithHTTPClient overrides the HTTP client used to fetch UPnP device
// descriptions. Nil uses http.DefaultClient.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) error {
		e.upnpClient = upnp.New(client)
		return nil
	}
}

// WithLogger sets a custom logger for the engine.
//
// Default: NoOpLogger (discards all logs)
func WithLogger(logger Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			return errors.New("discovery: logger cannot be nil")
		}
		e.logger = logger
		return nil
	}
}

func flooredInterval(interval time.Duration) time.Duration {
	if interval < minInterval {
		return minInterval
	}
	return interval
}
