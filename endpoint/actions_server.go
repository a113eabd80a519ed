package endpoint

import "github.com/flowmq/endpoint/packets"

// Connack sends a CONNACK in reply to an inbound CONNECT. On an accepted
// code the caller is expected to have already decided sessionPresent
// from its own session bookkeeping (the endpoint's delivery store only
// exists once a session is established, so it cannot decide this itself).
func (ep *Endpoint) Connack(sessionPresent bool, returnCode byte) error {
	return ep.connack(sessionPresent, returnCode, true, nil)
}

// ConnackAsync is the asynchronous-enqueue flavor of Connack.
func (ep *Endpoint) ConnackAsync(sessionPresent bool, returnCode byte, done func(error)) {
	ep.connack(sessionPresent, returnCode, false, done)
}

func (ep *Endpoint) connack(sessionPresent bool, returnCode byte, sync bool, done func(error)) error {
	pk := &packets.ConnackPacket{
		FixedHeader:    packets.FixedHeader{Type: packets.Connack},
		SessionPresent: sessionPresent,
		ReturnCode:     returnCode,
	}
	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		return err
	}
	err := ep.transmit(fr, sync, done)
	if err == nil && returnCode == packets.ConnectAccepted {
		ep.connected.Store(true)
	}
	return err
}

// Suback sends a SUBACK echoing packetID with the granted/failed return
// code per requested topic filter.
func (ep *Endpoint) Suback(packetID uint16, returnCodes []byte) error {
	return ep.suback(packetID, returnCodes, true, nil)
}

// SubackAsync is the asynchronous-enqueue flavor of Suback.
func (ep *Endpoint) SubackAsync(packetID uint16, returnCodes []byte, done func(error)) {
	ep.suback(packetID, returnCodes, false, done)
}

func (ep *Endpoint) suback(packetID uint16, returnCodes []byte, sync bool, done func(error)) error {
	pk := &packets.SubackPacket{
		FixedHeader: packets.FixedHeader{Type: packets.Suback},
		PacketID:    packetID,
		ReturnCodes: returnCodes,
	}
	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		return err
	}
	return ep.transmit(fr, sync, done)
}

// Unsuback sends an UNSUBACK echoing packetID.
func (ep *Endpoint) Unsuback(packetID uint16) error {
	return ep.unsuback(packetID, true, nil)
}

// UnsubackAsync is the asynchronous-enqueue flavor of Unsuback.
func (ep *Endpoint) UnsubackAsync(packetID uint16, done func(error)) {
	ep.unsuback(packetID, false, done)
}

func (ep *Endpoint) unsuback(packetID uint16, sync bool, done func(error)) error {
	pk := &packets.UnsubackPacket{FixedHeader: packets.FixedHeader{Type: packets.Unsuback}, PacketID: packetID}
	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		return err
	}
	return ep.transmit(fr, sync, done)
}

// Pingresp sends a PINGRESP in reply to an inbound PINGREQ.
func (ep *Endpoint) Pingresp() error {
	return ep.pingresp(true, nil)
}

// PingrespAsync is the asynchronous-enqueue flavor of Pingresp.
func (ep *Endpoint) PingrespAsync(done func(error)) {
	ep.pingresp(false, done)
}

func (ep *Endpoint) pingresp(sync bool, done func(error)) error {
	pk := &packets.PingrespPacket{FixedHeader: packets.FixedHeader{Type: packets.Pingresp}}
	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		return err
	}
	return ep.transmit(fr, sync, done)
}
