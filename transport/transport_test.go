package transport

import (
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTCPStreamReadWriteRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cs := NewTCPStream(client)
	ss := NewTCPStream(server)

	go func() {
		require.NoError(t, cs.WriteAll([]byte("hello")))
	}()

	buf := make([]byte, 5)
	require.NoError(t, ss.ReadExact(buf))
	require.Equal(t, "hello", string(buf))
}

func TestTCPStreamShutdownIsIdempotent(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	s := NewTCPStream(client)
	require.NoError(t, s.Shutdown())
	require.NoError(t, s.Shutdown())
}

func TestClassifyEOF(t *testing.T) {
	require.Equal(t, KindEOF, Classify(io.EOF))
}

func TestClassifyShortRead(t *testing.T) {
	require.Equal(t, KindShortRead, Classify(io.ErrUnexpectedEOF))
}

func TestClassifyOther(t *testing.T) {
	require.Equal(t, KindOther, Classify(errors.New("boom")))
}
