package packets

// SubackPacket contains the values of an MQTT SUBACK packet.
type SubackPacket struct {
	FixedHeader

	PacketID    uint16
	ReturnCodes []byte
}

// Encode encodes and writes the packet data values to the frame.
func (pk *SubackPacket) Encode(fr *Frame) error {
	fr.Write(encodeUint16(pk.PacketID))
	fr.Write(pk.ReturnCodes)
	fr.Finalize(Suback, pk.flags())
	return nil
}

// Decode extracts the data values from the packet.
func (pk *SubackPacket) Decode(buf []byte) error {
	var offset int
	var err error

	pk.PacketID, offset, err = decodeUint16(buf, offset)
	if err != nil {
		return ErrMalformedPacketID
	}

	pk.ReturnCodes = buf[offset:]

	return nil
}

// Validate ensures the packet is compliant.
func (pk *SubackPacket) Validate() (byte, error) {
	return Accepted, nil
}
