package endpoint

import (
	"github.com/flowmq/endpoint/inflight"
	"github.com/flowmq/endpoint/packets"
)

// Connect sends a CONNECT built from the endpoint's configured fields
// (SetClientID, SetCleanSession, SetUserName/SetPassword, SetWill). The
// endpoint is considered connected once the bytes are on the wire; the
// caller should still wait for the matching CONNACK callback before
// treating the session as usable.
func (ep *Endpoint) Connect() error {
	return ep.connect(true, nil)
}

// ConnectAsync is the asynchronous-enqueue flavor of Connect.
func (ep *Endpoint) ConnectAsync(done func(error)) {
	ep.connect(false, done)
}

func (ep *Endpoint) connect(sync bool, done func(error)) error {
	ep.mu.Lock()
	pk := &packets.ConnectPacket{
		FixedHeader:      packets.FixedHeader{Type: packets.Connect},
		ProtocolName:     "MQTT",
		ProtocolVersion:  4,
		CleanSession:     ep.cleanSession,
		Keepalive:        ep.keepAlive,
		ClientIdentifier: ep.clientID,
	}
	if ep.userName != "" {
		pk.UsernameFlag = true
		pk.Username = ep.userName
	}
	if ep.password != "" {
		pk.PasswordFlag = true
		pk.Password = ep.password
	}
	if ep.will != nil {
		pk.WillFlag = true
		pk.WillTopic = ep.will.Topic
		pk.WillMessage = ep.will.Message
		pk.WillQos = byte(ep.will.Qos)
		pk.WillRetain = ep.will.Retain
	}
	ep.mu.Unlock()

	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		return err
	}

	err := ep.transmit(fr, sync, done)
	if err == nil {
		ep.connected.Store(true)
	}
	return err
}

// Publish sends a PUBLISH for topic/payload at the given QoS. For QoS 0
// it returns packetID 0, per [MQTT-2.3.1-5]. For QoS 1/2 it allocates a
// packet id and records a delivery-store entry expecting PUBACK (QoS1) or
// PUBREC (QoS2), so the message survives a disconnect and replays with
// DUP set on reconnect.
func (ep *Endpoint) Publish(topic string, payload []byte, qos byte, retain bool) (uint16, error) {
	return ep.publish(topic, payload, qos, retain, true, nil)
}

// PublishAsync is the asynchronous-enqueue flavor of Publish. The packet
// id is already known (and the store entry already recorded) by the time
// this call returns; done reports whether the bytes made it to the wire.
func (ep *Endpoint) PublishAsync(topic string, payload []byte, qos byte, retain bool, done func(error)) (uint16, error) {
	return ep.publish(topic, payload, qos, retain, false, done)
}

func (ep *Endpoint) publish(topic string, payload []byte, qos byte, retain bool, sync bool, done func(error)) (uint16, error) {
	var packetID uint16
	var err error

	if qos > 0 {
		packetID, err = ep.inflight.AcquireUnique()
		if err != nil {
			return 0, err
		}
	}

	pk := &packets.PublishPacket{
		FixedHeader: packets.FixedHeader{Type: packets.Publish, Qos: qos, Retain: retain},
		TopicName:   topic,
		PacketID:    packetID,
		Payload:     payload,
	}

	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		if qos > 0 {
			ep.inflight.Release(packetID)
		}
		return 0, err
	}

	if qos > 0 {
		respType := packets.Puback
		if qos == 2 {
			respType = packets.Pubrec
		}
		ep.inflight.Store(packetID, inflight.ResponseType(respType), fr)
	}

	if err := ep.transmit(fr, sync, done); err != nil {
		return packetID, err
	}
	return packetID, nil
}

// PublishWithID sends a PUBLISH at qos>0 using a caller-chosen packet id
// instead of one allocated by AcquireUnique, mirroring the original
// endpoint's manual-packet-id publish overloads. It reports false without
// sending anything if packetID is 0 or already in flight.
func (ep *Endpoint) PublishWithID(packetID uint16, topic string, payload []byte, qos byte, retain bool) (bool, error) {
	if qos == 0 {
		return false, nil
	}
	if !ep.inflight.Register(packetID) {
		return false, nil
	}

	pk := &packets.PublishPacket{
		FixedHeader: packets.FixedHeader{Type: packets.Publish, Qos: qos, Retain: retain},
		TopicName:   topic,
		PacketID:    packetID,
		Payload:     payload,
	}
	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		ep.inflight.Release(packetID)
		return false, err
	}

	respType := packets.Puback
	if qos == 2 {
		respType = packets.Pubrec
	}
	ep.inflight.Store(packetID, inflight.ResponseType(respType), fr)

	if err := ep.transmit(fr, true, nil); err != nil {
		return true, err
	}
	return true, nil
}

// Subscribe sends a SUBSCRIBE for the given topic filters and their
// requested QoS levels, allocating a packet id released when the
// matching SUBACK arrives.
func (ep *Endpoint) Subscribe(topics []string, qoss []byte) (uint16, error) {
	return ep.subscribe(topics, qoss, true, nil)
}

// SubscribeAsync is the asynchronous-enqueue flavor of Subscribe.
func (ep *Endpoint) SubscribeAsync(topics []string, qoss []byte, done func(error)) (uint16, error) {
	return ep.subscribe(topics, qoss, false, done)
}

func (ep *Endpoint) subscribe(topics []string, qoss []byte, sync bool, done func(error)) (uint16, error) {
	packetID, err := ep.inflight.AcquireUnique()
	if err != nil {
		return 0, err
	}

	pk := &packets.SubscribePacket{
		FixedHeader: packets.FixedHeader{Type: packets.Subscribe, Qos: 1},
		PacketID:    packetID,
		Topics:      topics,
		Qoss:        qoss,
	}
	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		ep.inflight.Release(packetID)
		return 0, err
	}

	if err := ep.transmit(fr, sync, done); err != nil {
		return packetID, err
	}
	return packetID, nil
}

// Unsubscribe sends an UNSUBSCRIBE for the given topic filters,
// allocating a packet id released when the matching UNSUBACK arrives.
func (ep *Endpoint) Unsubscribe(topics []string) (uint16, error) {
	return ep.unsubscribe(topics, true, nil)
}

// UnsubscribeAsync is the asynchronous-enqueue flavor of Unsubscribe.
func (ep *Endpoint) UnsubscribeAsync(topics []string, done func(error)) (uint16, error) {
	return ep.unsubscribe(topics, false, done)
}

func (ep *Endpoint) unsubscribe(topics []string, sync bool, done func(error)) (uint16, error) {
	packetID, err := ep.inflight.AcquireUnique()
	if err != nil {
		return 0, err
	}

	pk := &packets.UnsubscribePacket{
		FixedHeader: packets.FixedHeader{Type: packets.Unsubscribe, Qos: 1},
		PacketID:    packetID,
		Topics:      topics,
	}
	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		ep.inflight.Release(packetID)
		return 0, err
	}

	if err := ep.transmit(fr, sync, done); err != nil {
		return packetID, err
	}
	return packetID, nil
}

// Pingreq sends a PINGREQ to keep the connection alive.
func (ep *Endpoint) Pingreq() error {
	return ep.pingreq(true, nil)
}

// PingreqAsync is the asynchronous-enqueue flavor of Pingreq.
func (ep *Endpoint) PingreqAsync(done func(error)) {
	ep.pingreq(false, done)
}

func (ep *Endpoint) pingreq(sync bool, done func(error)) error {
	pk := &packets.PingreqPacket{FixedHeader: packets.FixedHeader{Type: packets.Pingreq}}
	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		return err
	}
	return ep.transmit(fr, sync, done)
}

// Disconnect sends a clean DISCONNECT and then shuts down the transport.
// No will message is triggered — this is the graceful path.
func (ep *Endpoint) Disconnect() error {
	pk := &packets.DisconnectPacket{FixedHeader: packets.FixedHeader{Type: packets.Disconnect}}
	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		return err
	}
	err := ep.transmit(fr, true, nil)
	ep.connected.Store(false)
	if shutErr := ep.stream.Shutdown(); err == nil {
		err = shutErr
	}
	return err
}

// ForceDisconnect shuts down the transport immediately without sending a
// DISCONNECT, e.g. on a protocol error where no further bytes should be
// trusted.
func (ep *Endpoint) ForceDisconnect() error {
	ep.connected.Store(false)
	return ep.stream.Shutdown()
}
