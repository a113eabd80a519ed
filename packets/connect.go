package packets

// ConnectPacket contains the values of an MQTT CONNECT packet.
type ConnectPacket struct {
	FixedHeader

	ProtocolName     string
	ProtocolVersion  byte
	CleanSession     bool
	WillFlag         bool
	WillQos          byte
	WillRetain       bool
	UsernameFlag     bool
	PasswordFlag     bool
	ReservedBit      byte
	Keepalive        uint16
	ClientIdentifier string
	WillTopic        string
	WillMessage      []byte // payload, not a UTF-8 string
	Username         string
	Password         string
}

// Encode encodes and writes the packet data values to the frame.
func (pk *ConnectPacket) Encode(fr *Frame) error {
	if len(pk.WillMessage) > 65535 {
		return ErrWillMessageLength
	}
	if len(pk.Password) > 65535 {
		return ErrPasswordLength
	}

	protoName, err := encodeString(pk.ProtocolName)
	if err != nil {
		return err
	}
	clientID, err := encodeString(pk.ClientIdentifier)
	if err != nil {
		return err
	}

	flags := encodeBool(pk.CleanSession)<<1 | encodeBool(pk.WillFlag)<<2 | pk.WillQos<<3 |
		encodeBool(pk.WillRetain)<<5 | encodeBool(pk.PasswordFlag)<<6 | encodeBool(pk.UsernameFlag)<<7

	fr.Write(protoName)
	fr.WriteByte(pk.ProtocolVersion)
	fr.WriteByte(flags)
	fr.Write(encodeUint16(pk.Keepalive))
	fr.Write(clientID)

	if pk.WillFlag {
		willTopic, err := encodeString(pk.WillTopic)
		if err != nil {
			return err
		}
		willMessage, err := encodeBytes(pk.WillMessage)
		if err != nil {
			return err
		}
		fr.Write(willTopic)
		fr.Write(willMessage)
	}

	if pk.UsernameFlag {
		username, err := encodeString(pk.Username)
		if err != nil {
			return err
		}
		fr.Write(username)
	}

	if pk.PasswordFlag {
		// Password is length-checked but not UTF-8-validated; encode
		// raw rather than as a UTF-8 string. [spec 4.D]
		password, err := encodeBytes([]byte(pk.Password))
		if err != nil {
			return err
		}
		fr.Write(password)
	}

	fr.Finalize(Connect, pk.flags())
	return nil
}

// Decode extracts the data values from the packet.
func (pk *ConnectPacket) Decode(buf []byte) error {
	var offset int
	var err error

	pk.ProtocolName, offset, err = decodeString(buf, 0)
	if err != nil {
		return ErrMalformedProtocolName
	}

	pk.ProtocolVersion, offset, err = decodeByte(buf, offset)
	if err != nil {
		return ErrMalformedProtocolVersion
	}

	flags, offset, err := decodeByte(buf, offset)
	if err != nil {
		return ErrMalformedFlags
	}
	pk.ReservedBit = 1 & flags
	pk.CleanSession = 1&(flags>>1) > 0
	pk.WillFlag = 1&(flags>>2) > 0
	pk.WillQos = 3 & (flags >> 3)
	pk.WillRetain = 1&(flags>>5) > 0
	pk.PasswordFlag = 1&(flags>>6) > 0
	pk.UsernameFlag = 1&(flags>>7) > 0

	pk.Keepalive, offset, err = decodeUint16(buf, offset)
	if err != nil {
		return ErrMalformedKeepalive
	}

	pk.ClientIdentifier, offset, err = decodeString(buf, offset)
	if err != nil {
		return ErrMalformedClientID
	}

	if pk.WillFlag {
		pk.WillTopic, offset, err = decodeString(buf, offset)
		if err != nil {
			return ErrMalformedWillTopic
		}

		pk.WillMessage, offset, err = decodeBytes(buf, offset)
		if err != nil {
			return ErrMalformedWillMessage
		}
	}

	if pk.UsernameFlag {
		pk.Username, offset, err = decodeString(buf, offset)
		if err != nil {
			return ErrMalformedUsername
		}
	}

	if pk.PasswordFlag {
		var passwordBytes []byte
		passwordBytes, offset, err = decodeBytes(buf, offset)
		if err != nil {
			return ErrMalformedPassword
		}
		pk.Password = string(passwordBytes)
	}

	return nil
}

// Validate ensures the packet is compliant. [MQTT-3.1.2-1..24]
func (pk *ConnectPacket) Validate() (byte, error) {
	if pk.ProtocolName != "MQIsdp" && pk.ProtocolName != "MQTT" {
		return Failed, ErrProtocolViolation
	}

	if (pk.ProtocolName == "MQIsdp" && pk.ProtocolVersion != 3) ||
		(pk.ProtocolName == "MQTT" && pk.ProtocolVersion != 4) {
		return ConnectBadProtocolVersion, ErrProtocolViolation
	}

	if pk.ReservedBit != 0 {
		return Failed, ErrProtocolViolation
	}

	if len(pk.ClientIdentifier) > 65535 {
		return Failed, ErrProtocolViolation
	}

	if pk.PasswordFlag && !pk.UsernameFlag {
		return Failed, ErrProtocolViolation
	}

	if len(pk.Username) > 65535 || len(pk.Password) > 65535 {
		return Failed, ErrProtocolViolation
	}

	if len(pk.WillMessage) > 65535 {
		return Failed, ErrWillMessageLength
	}

	// Client id may be empty only when clean-session is requested.
	if !pk.CleanSession && len(pk.ClientIdentifier) == 0 {
		return ConnectBadClientID, ErrProtocolViolation
	}

	return Accepted, nil
}
