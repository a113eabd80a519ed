package packets

// UnsubscribePacket contains the values of an MQTT UNSUBSCRIBE packet.
type UnsubscribePacket struct {
	FixedHeader

	PacketID uint16
	Topics   []string
}

// Encode encodes and writes the packet data values to the frame.
// [MQTT-2.3.1-1]: SUBSCRIBE, UNSUBSCRIBE, and PUBLISH (QoS > 0) MUST
// carry a non-zero packet id.
func (pk *UnsubscribePacket) Encode(fr *Frame) error {
	if pk.PacketID == 0 {
		return ErrMissingPacketID
	}

	fr.Write(encodeUint16(pk.PacketID))

	for _, topic := range pk.Topics {
		enc, err := encodeString(topic)
		if err != nil {
			return err
		}
		fr.Write(enc)
	}

	fr.Finalize(Unsubscribe, pk.flags())
	return nil
}

// Decode extracts the data values from the packet.
func (pk *UnsubscribePacket) Decode(buf []byte) error {
	var offset int
	var err error

	pk.PacketID, offset, err = decodeUint16(buf, 0)
	if err != nil {
		return ErrMalformedPacketID
	}

	for offset < len(buf) {
		var t string
		t, offset, err = decodeString(buf, offset)
		if err != nil {
			return ErrMalformedTopic
		}
		if t != "" {
			pk.Topics = append(pk.Topics, t)
		}
	}

	return nil
}

// Validate ensures the packet is compliant.
func (pk *UnsubscribePacket) Validate() (byte, error) {
	if pk.FixedHeader.Qos > 0 && pk.PacketID == 0 {
		return Failed, ErrMissingPacketID
	}
	return Accepted, nil
}
