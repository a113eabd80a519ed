package packets

// PubcompPacket completes a QoS 2 handshake. It ends the packet id's
// delivery and releases it.
type PubcompPacket struct {
	FixedHeader

	PacketID uint16
}

// Encode encodes and writes the packet data values to the buffer.
func (pk *PubcompPacket) Encode(fr *Frame) error {
	fr.Write(encodeUint16(pk.PacketID))
	fr.Finalize(Pubcomp, pk.flags())
	return nil
}

// Decode extracts the data values from the packet.
func (pk *PubcompPacket) Decode(buf []byte) error {
	var err error
	pk.PacketID, _, err = decodeUint16(buf, 0)
	if err != nil {
		return ErrMalformedPacketID
	}
	return nil
}

// Validate ensures the packet is compliant.
func (pk *PubcompPacket) Validate() (byte, error) {
	return Accepted, nil
}
