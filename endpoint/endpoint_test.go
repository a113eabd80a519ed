package endpoint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowmq/endpoint/inflight"
	"github.com/flowmq/endpoint/packets"
)

func newTestEndpoint() (*Endpoint, *fakeStream) {
	s := newFakeStream(nil)
	ep := New(s, &Options{ClientID: "test-client", KeepAlive: 30})
	return ep, s
}

func readPacket(t *testing.T, buf []byte) packets.Packet {
	t.Helper()
	asm := packets.NewAssembler(streamReader{newFakeStream(buf)})
	pk, err := asm.Next()
	require.NoError(t, err)
	return pk
}

func TestConnectSendsConfiguredFields(t *testing.T) {
	ep, s := newTestEndpoint()
	ep.SetCleanSession(true)
	ep.SetUserName("alice")
	ep.SetPassword("secret")

	require.NoError(t, ep.Connect())
	require.True(t, ep.Connected())

	pk := readPacket(t, s.written())
	cp, ok := pk.(*packets.ConnectPacket)
	require.True(t, ok)
	require.Equal(t, "test-client", cp.ClientIdentifier)
	require.True(t, cp.CleanSession)
	require.Equal(t, "alice", cp.Username)
	require.Equal(t, "secret", cp.Password)
	require.Equal(t, uint16(30), cp.Keepalive)
}

func TestPublishQoS0HasNoPacketIDAndNoStoreEntry(t *testing.T) {
	ep, s := newTestEndpoint()

	id, err := ep.Publish("a/b", []byte("hi"), 0, false)
	require.NoError(t, err)
	require.Equal(t, uint16(0), id)
	require.Equal(t, 0, ep.inflight.Len())

	pk := readPacket(t, s.written())
	pp, ok := pk.(*packets.PublishPacket)
	require.True(t, ok)
	require.Equal(t, "a/b", pp.TopicName)
	require.Equal(t, []byte("hi"), pp.Payload)
}

func TestPublishQoS1AllocatesAndStoresAwaitingPuback(t *testing.T) {
	ep, s := newTestEndpoint()

	id, err := ep.Publish("a/b", []byte("hi"), 1, false)
	require.NoError(t, err)
	require.NotEqual(t, uint16(0), id)
	require.Equal(t, 1, ep.inflight.Len())
	require.True(t, ep.inflight.InUse(id))

	pk := readPacket(t, s.written())
	pp := pk.(*packets.PublishPacket)
	require.Equal(t, id, pp.PacketID)
	require.EqualValues(t, 1, pp.Qos)
}

func TestPubackReleasesStoredQoS1Entry(t *testing.T) {
	ep, _ := newTestEndpoint()
	id, err := ep.Publish("a/b", []byte("hi"), 1, false)
	require.NoError(t, err)
	require.Equal(t, 1, ep.inflight.Len())

	cont, err := ep.dispatch(&packets.PubackPacket{
		FixedHeader: packets.FixedHeader{Type: packets.Puback},
		PacketID:    id,
	})
	require.NoError(t, err)
	require.True(t, cont)
	require.Equal(t, 0, ep.inflight.Len())
	require.False(t, ep.inflight.InUse(id))
}

func TestAutoRespondSendsPubackForQoS1PublishWhenEnabled(t *testing.T) {
	ep, s := newTestEndpoint()
	ep.SetAutoPubResponse(true, false)
	ep.connected.Store(true)

	delivered := 0
	ep.OnPublish(func(msg PublishMessage) bool {
		delivered++
		require.Equal(t, "topic", msg.Topic)
		return true
	})

	cont, err := ep.dispatch(&packets.PublishPacket{
		FixedHeader: packets.FixedHeader{Type: packets.Publish, Qos: 1},
		TopicName:   "topic",
		PacketID:    7,
		Payload:     []byte("x"),
	})
	require.NoError(t, err)
	require.True(t, cont)
	require.Equal(t, 1, delivered)

	pk := readPacket(t, s.written())
	pa, ok := pk.(*packets.PubackPacket)
	require.True(t, ok)
	require.Equal(t, uint16(7), pa.PacketID)
}

func TestQoS2DuplicateDeliveryIsSuppressedButPubrecAlwaysSent(t *testing.T) {
	ep, s := newTestEndpoint()
	ep.SetAutoPubResponse(true, false)
	ep.connected.Store(true)

	delivered := 0
	ep.OnPublish(func(msg PublishMessage) bool {
		delivered++
		return true
	})

	pub := &packets.PublishPacket{
		FixedHeader: packets.FixedHeader{Type: packets.Publish, Qos: 2},
		TopicName:   "topic",
		PacketID:    9,
		Payload:     []byte("x"),
	}

	_, err := ep.dispatch(pub)
	require.NoError(t, err)
	_, err = ep.dispatch(pub)
	require.NoError(t, err)

	require.Equal(t, 1, delivered)

	asm := packets.NewAssembler(streamReader{newFakeStream(s.written())})
	for i := 0; i < 2; i++ {
		pk, err := asm.Next()
		require.NoError(t, err)
		pr, ok := pk.(*packets.PubrecPacket)
		require.True(t, ok)
		require.Equal(t, uint16(9), pr.PacketID)
	}
}

func TestPubrelReceivedClearsDedupAndSendsPubcomp(t *testing.T) {
	ep, s := newTestEndpoint()
	ep.SetAutoPubResponse(true, false)
	ep.connected.Store(true)
	ep.qos2Received[11] = struct{}{}

	cont, err := ep.dispatch(&packets.PubrelPacket{
		FixedHeader: packets.FixedHeader{Type: packets.Pubrel, Qos: 1},
		PacketID:    11,
	})
	require.NoError(t, err)
	require.True(t, cont)

	_, stillDup := ep.qos2Received[11]
	require.False(t, stillDup)

	pk := readPacket(t, s.written())
	pc, ok := pk.(*packets.PubcompPacket)
	require.True(t, ok)
	require.Equal(t, uint16(11), pc.PacketID)
}

func TestPubrecAutoResponseStoresPubrelAwaitingPubcomp(t *testing.T) {
	ep, s := newTestEndpoint()
	ep.SetAutoPubResponse(true, false)
	ep.connected.Store(true)

	cont, err := ep.dispatch(&packets.PubrecPacket{
		FixedHeader: packets.FixedHeader{Type: packets.Pubrec},
		PacketID:    13,
	})
	require.NoError(t, err)
	require.True(t, cont)
	require.Equal(t, 1, ep.inflight.Len())

	pk := readPacket(t, s.written())
	pr, ok := pk.(*packets.PubrelPacket)
	require.True(t, ok)
	require.Equal(t, uint16(13), pr.PacketID)
}

func TestSessionReplaySetsDupOnPublishButNotOnPubrel(t *testing.T) {
	ep, s := newTestEndpoint()
	ep.SetCleanSession(false)

	pubFrame := packets.NewFrame()
	require.NoError(t, (&packets.PublishPacket{
		FixedHeader: packets.FixedHeader{Type: packets.Publish, Qos: 1},
		TopicName:   "t",
		PacketID:    21,
		Payload:     []byte("x"),
	}).Encode(pubFrame))
	ep.inflight.Store(21, inflight.ResponseType(packets.Puback), pubFrame)

	pubrelFrame := packets.NewFrame()
	require.NoError(t, (&packets.PubrelPacket{
		FixedHeader: packets.FixedHeader{Type: packets.Pubrel},
		PacketID:    22,
	}).Encode(pubrelFrame))
	ep.inflight.Store(22, inflight.ResponseType(packets.Pubcomp), pubrelFrame)

	_, err := ep.dispatch(&packets.ConnackPacket{
		FixedHeader: packets.FixedHeader{Type: packets.Connack},
		ReturnCode:  packets.ConnectAccepted,
	})
	require.NoError(t, err)

	asm := packets.NewAssembler(streamReader{newFakeStream(s.written())})

	first, err := asm.Next()
	require.NoError(t, err)
	pp, ok := first.(*packets.PublishPacket)
	require.True(t, ok)
	require.True(t, pp.Dup)

	second, err := asm.Next()
	require.NoError(t, err)
	_, ok = second.(*packets.PubrelPacket)
	require.True(t, ok)
}

func TestPublishWithIDUsesCallerSuppliedPacketID(t *testing.T) {
	ep, s := newTestEndpoint()

	ok, err := ep.PublishWithID(99, "a/b", []byte("hi"), 1, false)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, ep.inflight.InUse(99))

	pk := readPacket(t, s.written())
	pp := pk.(*packets.PublishPacket)
	require.Equal(t, uint16(99), pp.PacketID)
}

func TestPublishWithIDRejectsIDAlreadyInFlight(t *testing.T) {
	ep, _ := newTestEndpoint()
	_, err := ep.Publish("a/b", []byte("hi"), 1, false)
	require.NoError(t, err)

	// The allocator handed out some id; force a collision by registering
	// that same id directly is covered by RestoreStored's test. Here a
	// fresh id registered twice in a row is enough to exercise the false
	// path without depending on AcquireUnique's cursor value.
	ok, err := ep.PublishWithID(123, "a/b", []byte("hi"), 1, false)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = ep.PublishWithID(123, "a/b", []byte("hi"), 1, false)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRestoreStoredReplaysOnNextConnack(t *testing.T) {
	ep, s := newTestEndpoint()
	ep.SetCleanSession(false)

	fr := packets.NewFrame()
	require.NoError(t, (&packets.PublishPacket{
		FixedHeader: packets.FixedHeader{Type: packets.Publish, Qos: 1},
		TopicName:   "t",
		PacketID:    41,
		Payload:     []byte("x"),
	}).Encode(fr))

	ok := ep.RestoreStored(41, packets.Puback, fr.Bytes())
	require.True(t, ok)
	require.Equal(t, 1, ep.inflight.Len())
	require.True(t, ep.inflight.InUse(41))

	_, err := ep.dispatch(&packets.ConnackPacket{
		FixedHeader: packets.FixedHeader{Type: packets.Connack},
		ReturnCode:  packets.ConnectAccepted,
	})
	require.NoError(t, err)

	pk := readPacket(t, s.written())
	pp, ok := pk.(*packets.PublishPacket)
	require.True(t, ok)
	require.Equal(t, uint16(41), pp.PacketID)
	require.True(t, pp.Dup)
}

func TestRestoreStoredRejectsIDAlreadyInUse(t *testing.T) {
	ep, _ := newTestEndpoint()
	id, err := ep.Publish("a/b", []byte("hi"), 1, false)
	require.NoError(t, err)

	ok := ep.RestoreStored(id, packets.Puback, packets.NewFrame().Bytes())
	require.False(t, ok)
}

func TestCleanSessionConnackResetsStoreWithoutReplay(t *testing.T) {
	ep, s := newTestEndpoint()
	ep.SetCleanSession(true)

	fr := packets.NewFrame()
	require.NoError(t, (&packets.PublishPacket{
		FixedHeader: packets.FixedHeader{Type: packets.Publish, Qos: 1},
		TopicName:   "t",
		PacketID:    31,
		Payload:     []byte("x"),
	}).Encode(fr))
	ep.inflight.Store(31, inflight.ResponseType(packets.Puback), fr)

	_, err := ep.dispatch(&packets.ConnackPacket{
		FixedHeader: packets.FixedHeader{Type: packets.Connack},
		ReturnCode:  packets.ConnectAccepted,
	})
	require.NoError(t, err)

	require.Equal(t, 0, ep.inflight.Len())
	require.Empty(t, s.written())
}

func TestReceiveLoopFiresCloseExactlyOnceOnEOF(t *testing.T) {
	s := newFakeStream(nil)
	ep := New(s, &Options{})

	closed := 0
	errored := 0
	ep.OnClose(func() { closed++ })
	ep.OnError(func(error) { errored++ })

	ep.StartSession()

	require.Equal(t, 1, closed)
	require.Equal(t, 0, errored)
	require.False(t, ep.Connected())
}

func TestReceiveLoopStopsWhenCallbackReturnsFalse(t *testing.T) {
	pingFrame := packets.NewFrame()
	(&packets.PingreqPacket{FixedHeader: packets.FixedHeader{Type: packets.Pingreq}}).Encode(pingFrame)

	s := newFakeStream(pingFrame.Bytes())
	ep := New(s, &Options{})

	closed := 0
	ep.OnClose(func() { closed++ })
	ep.OnPingreq(func() bool { return false })

	ep.StartSession()

	require.Equal(t, 1, closed)
}
