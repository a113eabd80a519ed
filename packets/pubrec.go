package packets

// PubrecPacket acknowledges receipt of a QoS 2 PUBLISH. It does not
// release the packet id — the id stays reserved until PUBCOMP.
type PubrecPacket struct {
	FixedHeader

	PacketID uint16
}

// Encode encodes and writes the packet data values to the buffer.
func (pk *PubrecPacket) Encode(fr *Frame) error {
	fr.Write(encodeUint16(pk.PacketID))
	fr.Finalize(Pubrec, pk.flags())
	return nil
}

// Decode extracts the data values from the packet.
func (pk *PubrecPacket) Decode(buf []byte) error {

	var err error

	pk.PacketID, _, err = decodeUint16(buf, 0)
	if err != nil {
		return ErrMalformedPacketID
	}

	return nil
}

// Validate ensures the packet is compliant.
func (pk *PubrecPacket) Validate() (byte, error) {
	return Accepted, nil
}
