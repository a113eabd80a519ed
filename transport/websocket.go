package transport

import (
	"errors"
	"io"
	"sync"

	"github.com/gorilla/websocket"
)

// ErrInvalidMessage indicates a non-binary websocket frame arrived where
// an MQTT packet was expected.
var ErrInvalidMessage = errors.New("transport: websocket message is not binary")

// WebsocketStream adapts a *websocket.Conn to the Stream interface,
// buffering partial reads across MQTT packet boundaries since a websocket
// message frame and an MQTT packet are not guaranteed to align 1:1.
// Grounded on the teacher's listeners.wsConn.
type WebsocketStream struct {
	conn *websocket.Conn

	mu      sync.Mutex
	pending []byte // unread bytes left over from the last message frame

	closeOnce sync.Once
}

// NewWebsocketStream wraps an already-upgraded *websocket.Conn.
func NewWebsocketStream(conn *websocket.Conn) *WebsocketStream {
	return &WebsocketStream{conn: conn}
}

// ReadExact reads exactly len(buf) bytes, pulling additional binary
// message frames from the connection as needed.
func (s *WebsocketStream) ReadExact(buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for n < len(buf) {
		if len(s.pending) == 0 {
			if err := s.fillPending(); err != nil {
				return err
			}
		}
		copied := copy(buf[n:], s.pending)
		s.pending = s.pending[copied:]
		n += copied
	}
	return nil
}

func (s *WebsocketStream) fillPending() error {
	op, r, err := s.conn.NextReader()
	if err != nil {
		return err
	}
	if op != websocket.BinaryMessage {
		return ErrInvalidMessage
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.pending = b
	return nil
}

// WriteAll writes buf as a single binary websocket message.
func (s *WebsocketStream) WriteAll(buf []byte) error {
	return s.conn.WriteMessage(websocket.BinaryMessage, buf)
}

// Shutdown closes the underlying websocket connection. Safe to call more
// than once.
func (s *WebsocketStream) Shutdown() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}
