package endpoint

import (
	"bytes"
	"io"
	"sync"
)

// fakeStream is a deterministic transport.Stream backed by plain byte
// buffers: ReadExact drains a pre-loaded inbound buffer (returning io.EOF
// once exhausted, matching a clean peer close), WriteAll appends to an
// outbound buffer a test can inspect afterwards. No goroutines or timing
// are involved, unlike a net.Pipe-backed test double.
type fakeStream struct {
	mu       sync.Mutex
	in       *bytes.Buffer
	out      *bytes.Buffer
	shutdown bool
}

func newFakeStream(inbound []byte) *fakeStream {
	return &fakeStream{in: bytes.NewBuffer(inbound), out: new(bytes.Buffer)}
}

func (s *fakeStream) ReadExact(buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.ReadFull(s.in, buf)
	return err
}

func (s *fakeStream) WriteAll(buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out.Write(buf)
	return nil
}

func (s *fakeStream) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
	return nil
}

func (s *fakeStream) written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.out.Bytes()...)
}
