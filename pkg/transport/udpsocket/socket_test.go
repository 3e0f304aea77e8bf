package udpsocket

import (
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	payloads [][]byte
	closedCh chan error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{closedCh: make(chan error, 1)}
}

func (s *recordingSink) OnDataReceived(payload []byte, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
}

func (s *recordingSink) OnClosed(err error) {
	s.closedCh <- err
}

func TestOpenSendReceive(t *testing.T) {
	server := New()
	sink := newRecordingSink()
	port, err := server.Open(0, sink)
	require.NoError(t, err)
	require.NotZero(t, port)
	defer server.Close()

	client := New()
	_, err = client.Open(0, newRecordingSink())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Send([]byte("hello"), "127.0.0.1", port))

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.payloads) == 1
	}, time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	assert.Equal(t, []byte("hello"), sink.payloads[0])
	sink.mu.Unlock()
}

func TestSendOnUnopenedSocketFails(t *testing.T) {
	s := New()
	err := s.Send([]byte("x"), "127.0.0.1", 1900)
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestCloseRequestedByUserReportsNoError(t *testing.T) {
	s := New()
	sink := newRecordingSink()
	_, err := s.Open(0, sink)
	require.NoError(t, err)

	s.Close()

	select {
	case err := <-sink.closedCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("OnClosed was not delivered")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s := New()
	_, err := s.Open(0, newRecordingSink())
	require.NoError(t, err)

	s.Close()
	assert.NotPanics(t, func() { s.Close() })
}

func TestReceivedPayloadIsTrimmedNotBuffer(t *testing.T) {
	server := New()
	sink := newRecordingSink()
	port, err := server.Open(0, sink)
	require.NoError(t, err)
	defer server.Close()

	conn, err := net.Dial("udp4", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("ab"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.payloads) == 1
	}, time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.payloads[0], 2)
}
