package endpoint

import (
	"github.com/flowmq/endpoint/inflight"
	"github.com/flowmq/endpoint/packets"
)

// transmit writes fr's bytes synchronously (blocking until on the wire,
// or failed) or asynchronously through the write pipeline, per sync.
// Either way a transport error raises the endpoint's error callback
// exactly once. done, if non-nil, always runs — synchronously before
// transmit returns in the sync case, or from the pipeline's completion
// in the async case.
func (ep *Endpoint) transmit(fr *packets.Frame, sync bool, done func(error)) error {
	buf := fr.Bytes()

	if sync {
		err := ep.write.WriteSync(buf)
		if err != nil {
			ep.raiseError(err)
		}
		if done != nil {
			done(err)
		}
		return err
	}

	ep.write.EnqueueAsync(buf, func(err error) {
		if err != nil {
			ep.raiseError(err)
		}
		if done != nil {
			done(err)
		}
	})
	return nil
}

// Puback/Pubrec/Pubrel/Pubcomp are sendable by either role depending on
// which side originated the PUBLISH they acknowledge, so they live
// together rather than split into a client/server file.

// Puback sends a PUBACK for packetID, ending a peer's QoS1 delivery.
func (ep *Endpoint) Puback(packetID uint16) error {
	return ep.puback(packetID, true, nil)
}

// PubackAsync is the asynchronous-enqueue flavor of Puback.
func (ep *Endpoint) PubackAsync(packetID uint16, done func(error)) {
	ep.puback(packetID, false, done)
}

func (ep *Endpoint) puback(packetID uint16, sync bool, done func(error)) error {
	pk := &packets.PubackPacket{FixedHeader: packets.FixedHeader{Type: packets.Puback}, PacketID: packetID}
	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		return err
	}
	return ep.transmit(fr, sync, done)
}

// Pubrec sends a PUBREC for packetID, the first half of ending a peer's
// QoS2 delivery.
func (ep *Endpoint) Pubrec(packetID uint16) error {
	return ep.pubrec(packetID, true, nil)
}

// PubrecAsync is the asynchronous-enqueue flavor of Pubrec.
func (ep *Endpoint) PubrecAsync(packetID uint16, done func(error)) {
	ep.pubrec(packetID, false, done)
}

func (ep *Endpoint) pubrec(packetID uint16, sync bool, done func(error)) error {
	pk := &packets.PubrecPacket{FixedHeader: packets.FixedHeader{Type: packets.Pubrec}, PacketID: packetID}
	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		return err
	}
	return ep.transmit(fr, sync, done)
}

// Pubrel sends a PUBREL for packetID, in reply to an inbound PUBREC for a
// QoS2 message this endpoint originally published. It records a delivery
// entry expecting PUBCOMP so the PUBREL survives a disconnect and replays
// on reconnect, per spec §4.C/§4.G.
func (ep *Endpoint) Pubrel(packetID uint16) error {
	return ep.pubrel(packetID, true, nil)
}

// PubrelAsync is the asynchronous-enqueue flavor of Pubrel.
func (ep *Endpoint) PubrelAsync(packetID uint16, done func(error)) {
	ep.pubrel(packetID, false, done)
}

func (ep *Endpoint) pubrel(packetID uint16, sync bool, done func(error)) error {
	pk := &packets.PubrelPacket{FixedHeader: packets.FixedHeader{Type: packets.Pubrel}, PacketID: packetID}
	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		return err
	}
	ep.inflight.Store(packetID, inflight.ResponseType(packets.Pubcomp), fr)
	return ep.transmit(fr, sync, done)
}

// Pubcomp sends a PUBCOMP for packetID, the second half of ending a
// peer's QoS2 delivery.
func (ep *Endpoint) Pubcomp(packetID uint16) error {
	return ep.pubcomp(packetID, true, nil)
}

// PubcompAsync is the asynchronous-enqueue flavor of Pubcomp.
func (ep *Endpoint) PubcompAsync(packetID uint16, done func(error)) {
	ep.pubcomp(packetID, false, done)
}

func (ep *Endpoint) pubcomp(packetID uint16, sync bool, done func(error)) error {
	pk := &packets.PubcompPacket{FixedHeader: packets.FixedHeader{Type: packets.Pubcomp}, PacketID: packetID}
	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		return err
	}
	return ep.transmit(fr, sync, done)
}
