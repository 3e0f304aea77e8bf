package session

import (
	"crypto/tls"
	"errors"
	"net/http"

	"github.com/ocastgo/ocast/pkg/callback"
)

// Option configures a Session during construction with New.
type Option func(*Session) error

// WithLogger sets a custom logger for the session.
//
// Default: NoOpLogger (discards all logs)
func WithLogger(logger Logger) Option {
	return func(s *Session) error {
		if logger == nil {
			return errors.New("session: logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithDispatcher installs the callback dispatcher every externally visible
// success/failure continuation and event is routed through. Default:
// callback.Identity.
func WithDispatcher(dispatcher callback.Dispatcher) Option {
	return func(s *Session) error {
		if dispatcher == nil {
			return errors.New("session: dispatcher cannot be nil")
		}
		s.dispatcher = dispatcher
		return nil
	}
}

// WithHTTPClient overrides the HTTP client used for DIAL requests. Nil uses
// http.DefaultClient.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Session) error {
		s.httpClient = client
		return nil
	}
}

// WithTLSConfig configures the session to dial wss://host:4433/ocast using
// the given TLS configuration instead of the plain ws://host:4434/ocast
// endpoint.
func WithTLSConfig(config *tls.Config) Option {
	return func(s *Session) error {
		s.tlsConfig = config
		return nil
	}
}

// WithEventListener installs the single listener slot notified of
// unsolicited disconnection and of media/settings/custom events.
func WithEventListener(listener EventListener) Option {
	return func(s *Session) error {
		s.listener = listener
		return nil
	}
}

// WithApplicationName sets the initial receiver application name. Default:
// unset, which fails any browser-routed command until SetApplicationName is
// called.
func WithApplicationName(name string) Option {
	return func(s *Session) error {
		s.appName = name
		return nil
	}
}
