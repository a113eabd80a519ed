package inflight

import (
	"testing"

	"github.com/flowmq/endpoint/packets"
	"github.com/stretchr/testify/require"
)

func TestAcquireUniqueSkipsZeroAndInUse(t *testing.T) {
	in := New()

	id, err := in.AcquireUnique()
	require.NoError(t, err)
	require.NotEqual(t, uint16(0), id)
	require.True(t, in.InUse(id))

	id2, err := in.AcquireUnique()
	require.NoError(t, err)
	require.NotEqual(t, id, id2)
}

func TestAcquireUniqueExhausted(t *testing.T) {
	in := New()
	for i := 0; i < 65535; i++ {
		_, err := in.AcquireUnique()
		require.NoError(t, err)
	}
	_, err := in.AcquireUnique()
	require.ErrorIs(t, err, ErrPacketIDExhausted)
}

func TestRegister(t *testing.T) {
	in := New()

	require.False(t, in.Register(0))

	require.True(t, in.Register(5))
	require.True(t, in.InUse(5))

	require.False(t, in.Register(5))
}

func TestReleaseFreesID(t *testing.T) {
	in := New()
	in.Register(7)
	in.Release(7)
	require.False(t, in.InUse(7))

	require.True(t, in.Register(7))
}

func TestStoreAndTake(t *testing.T) {
	in := New()
	id, _ := in.AcquireUnique()

	fr := packets.NewFrame()
	in.Store(id, ResponseType(packets.Puback), fr)
	require.Equal(t, 1, in.Len())

	_, ok := in.Take(id, ResponseType(packets.Pubrec))
	require.False(t, ok, "wrong response type must not match")

	e, ok := in.Take(id, ResponseType(packets.Puback))
	require.True(t, ok)
	require.Equal(t, id, e.PacketID)
	require.Equal(t, 0, in.Len())
}

func TestClearStoredPublishRemovesAllResponseTypes(t *testing.T) {
	in := New()
	id, _ := in.AcquireUnique()

	in.Store(id, ResponseType(packets.Pubrec), packets.NewFrame())
	in.Store(id, ResponseType(packets.Pubcomp), packets.NewFrame())
	in.ClearStoredPublish(id)

	_, ok := in.Take(id, ResponseType(packets.Pubrec))
	require.False(t, ok)
	_, ok = in.Take(id, ResponseType(packets.Pubcomp))
	require.False(t, ok)
	require.Equal(t, 0, in.Len())
}

func TestIterateStoredPreservesInsertionOrder(t *testing.T) {
	in := New()

	ids := []uint16{1, 2, 3}
	for _, id := range ids {
		in.Register(id)
		in.Store(id, ResponseType(packets.Puback), packets.NewFrame())
	}

	var seen []uint16
	in.IterateStored(func(e *StoreEntry) {
		seen = append(seen, e.PacketID)
	})

	require.Equal(t, ids, seen)
}

func TestResetClearsStoreAndReleasesIDs(t *testing.T) {
	in := New()
	id, _ := in.AcquireUnique()
	in.Store(id, ResponseType(packets.Puback), packets.NewFrame())

	in.Reset()

	require.Equal(t, 0, in.Len())
	require.False(t, in.InUse(id))
}

func TestDupMutationIsVisibleThroughStoredFrame(t *testing.T) {
	in := New()
	id, _ := in.AcquireUnique()

	pk := &packets.PublishPacket{
		FixedHeader: packets.FixedHeader{Type: packets.Publish, Qos: 1},
		TopicName:   "a/b",
		PacketID:    id,
		Payload:     []byte("hi"),
	}
	fr := packets.NewFrame()
	require.NoError(t, pk.Encode(fr))
	in.Store(id, ResponseType(packets.Puback), fr)

	before := append([]byte(nil), fr.Bytes()...)
	fr.SetDup(true)
	require.NotEqual(t, before[0], fr.Bytes()[0])
	require.Equal(t, byte(0x08), fr.Bytes()[0]&0x08)
}
