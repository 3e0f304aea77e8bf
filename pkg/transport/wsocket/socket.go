// Package wsocket implements the OCast device session's WebSocket
// transport: connect with a bounded timeout, send with a hard size limit,
// receive text frames, keepalive ping, and an orderly close, all reported
// through a Sink callback seam.
package wsocket

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// PlainPort is the port used for an unencrypted ws:// connection.
	PlainPort = 4434
	// TLSPort is the port used for a wss:// connection.
	TLSPort = 4433
	// Path is the fixed WebSocket endpoint path on every OCast device.
	Path = "/ocast"

	// MaxSendBytes is the largest text payload Send will transmit. Per
	// spec, larger payloads are rejected rather than sent.
	MaxSendBytes = 4096

	connectTimeout      = 5 * time.Second
	keepalivePeriod     = 5 * time.Second
	keepalivePongWindow = keepalivePeriod + connectTimeout // tolerate one missed pong
)

// Logger is a slog-compatible logging seam.
type Logger interface {
	Log(ctx context.Context, level slog.Level, msg string, args ...any)
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

func (NoOpLogger) Log(context.Context, slog.Level, string, ...any) {}

// Sink receives events from an open Socket.
type Sink interface {
	// OnOpen is called once the connection is established.
	OnOpen()
	// OnMessage is called once per received text frame.
	OnMessage(text string)
	// OnClose is called exactly once when the connection ends. err is nil
	// when the close was requested through Close, non-nil otherwise
	// (including a close initiated by the peer).
	OnClose(err error)
}

// Socket is a single WebSocket connection to an OCast device's command
// channel. The zero value is not usable; construct with New.
type Socket struct {
	logger    Logger
	tlsConfig *tls.Config

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	done   chan struct{}
}

// Option configures a Socket at construction time.
type Option func(*Socket)

// WithLogger installs a logger used for diagnostic messages.
func WithLogger(logger Logger) Option {
	return func(s *Socket) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTLSConfig configures the socket to dial wss://host:4433/ocast using
// the given TLS configuration instead of the plain ws://host:4434/ocast
// endpoint. A nil config (the default) uses the plain endpoint.
func WithTLSConfig(config *tls.Config) Option {
	return func(s *Socket) {
		s.tlsConfig = config
	}
}

// New creates an unconnected Socket.
func New(opts ...Option) *Socket {
	s := &Socket{logger: NoOpLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// endpoint builds the ws(s)://host:port/ocast URL for host, selecting the
// port and scheme based on whether a TLS configuration is set.
func (s *Socket) endpoint(host string) string {
	if s.tlsConfig != nil {
		return (&url.URL{Scheme: "wss", Host: fmt.Sprintf("%s:%d", host, TLSPort), Path: Path}).String()
	}
	return (&url.URL{Scheme: "ws", Host: fmt.Sprintf("%s:%d", host, PlainPort), Path: Path}).String()
}

// Connect dials host and reports sink.OnOpen on success; a dial failure is
// returned as an error without calling sink. Once connected, sink.OnClose
// reports the end of the connection. Connect itself blocks for at most 5
// seconds.
//
// It is an error to Connect a socket that is already connected.
func (s *Socket) Connect(host string, sink Sink) error {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return errors.New("wsocket: already connected")
	}
	s.mu.Unlock()

	dialer := &websocket.Dialer{
		HandshakeTimeout: connectTimeout,
		TLSClientConfig:  s.tlsConfig,
	}

	conn, _, err := dialer.Dial(s.endpoint(host), http.Header{})
	if err != nil {
		return fmt.Errorf("wsocket: dial %s: %w", host, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.closed = false
	s.done = make(chan struct{})
	s.mu.Unlock()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(keepalivePongWindow))
	})
	_ = conn.SetReadDeadline(time.Now().Add(keepalivePongWindow))

	go s.pingLoop(conn)
	go s.receiveLoop(conn, sink)

	sink.OnOpen()
	return nil
}

// Send transmits a text frame. Returns false if payload exceeds
// MaxSendBytes, if the socket is not connected, or if the write fails.
func (s *Socket) Send(payload string) bool {
	if len(payload) > MaxSendBytes {
		return false
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return false
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		s.logger.Log(context.Background(), slog.LevelWarn, "wsocket: send failed", "err", err)
		return false
	}
	return true
}

// Close requests an orderly close (WebSocket close code 1000) and waits
// for the receive loop to report it via OnClose(nil). Idempotent.
func (s *Socket) Close() {
	s.mu.Lock()
	if s.conn == nil || s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	done := s.done
	s.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	_ = conn.Close()
	<-done
}

func (s *Socket) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(keepalivePeriod)
	defer ticker.Stop()
	for range ticker.C {
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}
		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(connectTimeout)); err != nil {
			return
		}
	}
}

func (s *Socket) receiveLoop(conn *websocket.Conn, sink Sink) {
	defer close(s.done)

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			requested := s.closed
			if s.conn == conn {
				s.conn = nil
			}
			s.mu.Unlock()
			if requested {
				sink.OnClose(nil)
			} else {
				sink.OnClose(fmt.Errorf("wsocket: receive: %w", err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		sink.OnMessage(string(payload))
	}
}
