package packets

// SubscribePacket contains the values of an MQTT SUBSCRIBE packet.
type SubscribePacket struct {
	FixedHeader

	PacketID uint16
	Topics   []string
	Qoss     []byte
}

// Encode encodes and writes the packet data values to the frame.
// [MQTT-2.3.1-1]: SUBSCRIBE, UNSUBSCRIBE, and PUBLISH (QoS > 0) MUST
// carry a non-zero packet id.
func (pk *SubscribePacket) Encode(fr *Frame) error {
	if pk.PacketID == 0 {
		return ErrMissingPacketID
	}

	fr.Write(encodeUint16(pk.PacketID))

	for i, topic := range pk.Topics {
		enc, err := encodeString(topic)
		if err != nil {
			return err
		}
		fr.Write(enc)
		fr.WriteByte(pk.Qoss[i])
	}

	fr.Finalize(Subscribe, pk.flags())
	return nil
}

// Decode extracts the data values from the packet.
func (pk *SubscribePacket) Decode(buf []byte) error {
	var offset int
	var err error

	pk.PacketID, offset, err = decodeUint16(buf, 0)
	if err != nil {
		return ErrMalformedPacketID
	}

	for offset < len(buf) {
		var topic string
		topic, offset, err = decodeString(buf, offset)
		if err != nil {
			return ErrMalformedTopic
		}
		pk.Topics = append(pk.Topics, topic)

		var qos byte
		qos, offset, err = decodeByte(buf, offset)
		if err != nil {
			return ErrMalformedQoS
		}
		if !validateQoS(qos) {
			return ErrMalformedQoS
		}
		pk.Qoss = append(pk.Qoss, qos)
	}

	return nil
}

// Validate ensures the packet is compliant.
func (pk *SubscribePacket) Validate() (byte, error) {
	if pk.FixedHeader.Qos > 0 && pk.PacketID == 0 {
		return Failed, ErrMissingPacketID
	}
	return Accepted, nil
}
