package packets

// PubackPacket acknowledges a QoS 1 PUBLISH; it ends that packet id's
// delivery and releases it.
type PubackPacket struct {
	FixedHeader

	PacketID uint16
}

// Encode encodes and writes the packet data values to the buffer.
func (pk *PubackPacket) Encode(fr *Frame) error {
	fr.Write(encodeUint16(pk.PacketID))
	fr.Finalize(Puback, pk.flags())
	return nil
}

// Decode extracts the data values from the packet.
func (pk *PubackPacket) Decode(buf []byte) error {
	var err error
	pk.PacketID, _, err = decodeUint16(buf, 0)
	if err != nil {
		return ErrMalformedPacketID
	}
	return nil
}

// Validate ensures the packet is compliant.
func (pk *PubackPacket) Validate() (byte, error) {
	return Accepted, nil
}
