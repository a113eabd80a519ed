package packets

// PublishPacket contains the values of an MQTT PUBLISH packet.
type PublishPacket struct {
	FixedHeader

	TopicName string
	PacketID  uint16
	Payload   []byte
}

// Encode encodes and writes the packet data values to the buffer.
// [MQTT-2.3.1-1]: SUBSCRIBE, UNSUBSCRIBE, and PUBLISH (QoS > 0) MUST
// carry a non-zero packet id. [MQTT-2.3.1-5]: PUBLISH MUST NOT carry one
// at QoS 0.
func (pk *PublishPacket) Encode(fr *Frame) error {
	topic, err := encodeString(pk.TopicName)
	if err != nil {
		return err
	}

	if pk.Qos > 0 && pk.PacketID == 0 {
		return ErrMissingPacketID
	}
	if pk.Qos == 0 && pk.PacketID > 0 {
		return ErrSurplusPacketID
	}

	fr.Write(topic)
	if pk.Qos > 0 {
		fr.Write(encodeUint16(pk.PacketID))
	}
	fr.Write(pk.Payload)
	fr.Finalize(Publish, pk.flags())
	return nil
}

// Decode extracts the data values from the packet.
func (pk *PublishPacket) Decode(buf []byte) error {
	var offset int
	var err error

	pk.TopicName, offset, err = decodeString(buf, 0)
	if err != nil {
		return ErrMalformedTopic
	}

	if pk.Qos > 0 {
		pk.PacketID, offset, err = decodeUint16(buf, offset)
		if err != nil {
			return ErrMalformedPacketID
		}
	}

	pk.Payload = buf[offset:]

	return nil
}

// Copy returns a new PublishPacket carrying the same topic and payload but
// a fresh fixed header, for retransmission under new QoS/DUP/retain flags.
func (pk *PublishPacket) Copy() *PublishPacket {
	return &PublishPacket{
		FixedHeader: FixedHeader{Type: Publish},
		TopicName:   pk.TopicName,
		Payload:     pk.Payload,
	}
}

// Validate ensures the packet is compliant.
func (pk *PublishPacket) Validate() (byte, error) {
	if pk.FixedHeader.Qos > 0 && pk.PacketID == 0 {
		return Failed, ErrMissingPacketID
	}
	if pk.FixedHeader.Qos == 0 && pk.PacketID > 0 {
		return Failed, ErrSurplusPacketID
	}
	return Accepted, nil
}
