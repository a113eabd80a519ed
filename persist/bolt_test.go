package persist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowmq/endpoint/packets"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotAndRestoreRoundTrip(t *testing.T) {
	s := openTestStore(t)

	entries := []struct {
		id   uint16
		resp packets.ControlPacketType
		buf  []byte
	}{
		{1, packets.Puback, []byte("frame-1")},
		{2, packets.Pubcomp, []byte("frame-2")},
	}

	err := s.Snapshot(func(yield func(uint16, packets.ControlPacketType, []byte)) {
		for _, e := range entries {
			yield(e.id, e.resp, e.buf)
		}
	})
	require.NoError(t, err)

	var got []struct {
		id   uint16
		resp packets.ControlPacketType
		buf  []byte
	}
	err = s.Restore(func(id uint16, resp packets.ControlPacketType, buf []byte) error {
		got = append(got, struct {
			id   uint16
			resp packets.ControlPacketType
			buf  []byte
		}{id, resp, buf})
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, uint16(1), got[0].id)
	require.Equal(t, packets.Puback, got[0].resp)
	require.Equal(t, []byte("frame-1"), got[0].buf)
	require.Equal(t, uint16(2), got[1].id)
	require.Equal(t, []byte("frame-2"), got[1].buf)
}

func TestSnapshotReplacesPriorContents(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Snapshot(func(yield func(uint16, packets.ControlPacketType, []byte)) {
		yield(5, packets.Puback, []byte("old"))
	}))
	require.NoError(t, s.Snapshot(func(yield func(uint16, packets.ControlPacketType, []byte)) {
		yield(9, packets.Pubrec, []byte("new"))
	}))

	var ids []uint16
	err := s.Restore(func(id uint16, resp packets.ControlPacketType, buf []byte) error {
		ids = append(ids, id)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint16{9}, ids)
}

func TestRestoreOnEmptyStoreCallsNothing(t *testing.T) {
	s := openTestStore(t)

	calls := 0
	err := s.Restore(func(uint16, packets.ControlPacketType, []byte) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 0, calls)
}
