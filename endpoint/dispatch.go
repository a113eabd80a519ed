package endpoint

import (
	"github.com/jinzhu/copier"

	"github.com/flowmq/endpoint/inflight"
	"github.com/flowmq/endpoint/packets"
)

// dispatch implements component C: validates pk, performs its side
// effects against delivery-store/session state, and invokes the
// registered callback for its type. It returns whether the receive loop
// should continue (a false return, or a missing callback's absence of
// one, is handled per packet type below). Grounded on the teacher's
// processPuback/processPubrec/processPubrel/processPubcomp/processPublish
// family in server.go, adapted from broker-only semantics to an endpoint
// that can play either role.
func (ep *Endpoint) dispatch(pk packets.Packet) (bool, error) {
	if _, err := pk.Validate(); err != nil {
		ep.log.Warn("protocol violation", "error", err, "client", ep.clientID)
		return false, err
	}

	switch p := pk.(type) {
	case *packets.ConnectPacket:
		return ep.dispatchConnect(p), nil
	case *packets.ConnackPacket:
		return ep.dispatchConnack(p), nil
	case *packets.PublishPacket:
		return ep.dispatchPublish(p), nil
	case *packets.PubackPacket:
		return ep.dispatchPuback(p), nil
	case *packets.PubrecPacket:
		return ep.dispatchPubrec(p), nil
	case *packets.PubrelPacket:
		return ep.dispatchPubrel(p), nil
	case *packets.PubcompPacket:
		return ep.dispatchPubcomp(p), nil
	case *packets.SubscribePacket:
		return ep.dispatchSubscribe(p), nil
	case *packets.SubackPacket:
		return ep.dispatchSuback(p), nil
	case *packets.UnsubscribePacket:
		return ep.dispatchUnsubscribe(p), nil
	case *packets.UnsubackPacket:
		return ep.dispatchUnsuback(p), nil
	case *packets.PingreqPacket:
		return ep.dispatchPingreq(), nil
	case *packets.PingrespPacket:
		return ep.dispatchPingresp(), nil
	case *packets.DisconnectPacket:
		return ep.dispatchDisconnect(), nil
	default:
		return false, ErrUnknownPacketType
	}
}

func (ep *Endpoint) dispatchConnect(p *packets.ConnectPacket) bool {
	var will *packets.Will
	if p.WillFlag {
		will = &packets.Will{
			Topic:   p.WillTopic,
			Message: p.WillMessage,
			Qos:     packets.QoS(p.WillQos),
			Retain:  p.WillRetain,
		}
	}
	ep.log.Debug("dispatched connect", "client", p.ClientIdentifier, "clean_session", p.CleanSession, "keep_alive", p.Keepalive)
	if ep.cb.Connect == nil {
		return true
	}
	return ep.cb.Connect(p.ClientIdentifier, p.Username, p.Password, will, p.CleanSession, p.Keepalive)
}

// dispatchConnack performs the reconnect-replay side effect: on an
// accepted CONNACK, either wipe the delivery store (clean session) or
// replay it onto the wire in original send order with DUP set.
func (ep *Endpoint) dispatchConnack(p *packets.ConnackPacket) bool {
	ep.log.Debug("dispatched connack", "client", ep.clientID, "return_code", p.ReturnCode, "session_present", p.SessionPresent)
	if p.ReturnCode == packets.ConnectAccepted {
		ep.replaySession()
	}
	if ep.cb.Connack == nil {
		return true
	}
	return ep.cb.Connack(p.SessionPresent, p.ReturnCode)
}

func (ep *Endpoint) dispatchPublish(p *packets.PublishPacket) bool {
	// p is reused internally by nothing past this call, but Copy detaches
	// the PublishMessage handed to the user from p's fields so a callback
	// that retains msg across calls (e.g. queues it for later processing)
	// never aliases assembler-owned state.
	var msg PublishMessage
	_ = copier.Copy(&msg, &PublishMessage{
		Topic:    p.TopicName,
		Payload:  p.Payload,
		Qos:      p.Qos,
		Retain:   p.Retain,
		Dup:      p.Dup,
		PacketID: p.PacketID,
	})

	ep.log.Debug("dispatched publish", "client", ep.clientID, "topic", p.TopicName, "qos", p.Qos, "packet_id", p.PacketID, "dup", p.Dup)

	cont := true
	switch p.Qos {
	case 0:
		cont = ep.deliver(msg)
	case 1:
		cont = ep.deliver(msg)
		ep.autoRespondAck(p.PacketID, packets.Puback)
	case 2:
		ep.qos2mu.Lock()
		_, dup := ep.qos2Received[p.PacketID]
		ep.qos2mu.Unlock()

		if !dup {
			cont = ep.deliver(msg)
			ep.qos2mu.Lock()
			ep.qos2Received[p.PacketID] = struct{}{}
			ep.qos2mu.Unlock()
		}
		// PUBREC is sent regardless of dup status or the callback's
		// return value, subject only to the auto-response policy
		// (enabled, and the endpoint connected).
		ep.autoRespondAck(p.PacketID, packets.Pubrec)
	}
	return cont
}

func (ep *Endpoint) deliver(msg PublishMessage) bool {
	if ep.cb.Publish == nil {
		return true
	}
	return ep.cb.Publish(msg)
}

func (ep *Endpoint) dispatchPuback(p *packets.PubackPacket) bool {
	ep.log.Debug("dispatched puback", "client", ep.clientID, "packet_id", p.PacketID)
	ep.inflight.Take(p.PacketID, inflight.ResponseType(packets.Puback))
	ep.inflight.Release(p.PacketID)
	if ep.cb.Puback == nil {
		return true
	}
	return ep.cb.Puback(p.PacketID)
}

// dispatchPubrec removes the (id, PUBREC) entry without releasing the id
// — it stays reserved while the auto PUBREL (if enabled) takes over with
// expected-response PUBCOMP.
func (ep *Endpoint) dispatchPubrec(p *packets.PubrecPacket) bool {
	ep.log.Debug("dispatched pubrec", "client", ep.clientID, "packet_id", p.PacketID)
	ep.inflight.Take(p.PacketID, inflight.ResponseType(packets.Pubrec))
	ep.sendPubrelAutoResponse(p.PacketID)
	if ep.cb.Pubrec == nil {
		return true
	}
	return ep.cb.Pubrec(p.PacketID)
}

func (ep *Endpoint) dispatchPubrel(p *packets.PubrelPacket) bool {
	ep.log.Debug("dispatched pubrel", "client", ep.clientID, "packet_id", p.PacketID)
	ep.qos2mu.Lock()
	delete(ep.qos2Received, p.PacketID)
	ep.qos2mu.Unlock()

	ep.sendPubcompAutoResponse(p.PacketID)

	if ep.cb.Pubrel == nil {
		return true
	}
	return ep.cb.Pubrel(p.PacketID)
}

func (ep *Endpoint) dispatchPubcomp(p *packets.PubcompPacket) bool {
	ep.log.Debug("dispatched pubcomp", "client", ep.clientID, "packet_id", p.PacketID)
	ep.inflight.Take(p.PacketID, inflight.ResponseType(packets.Pubcomp))
	ep.inflight.Release(p.PacketID)
	if ep.cb.Pubcomp == nil {
		return true
	}
	return ep.cb.Pubcomp(p.PacketID)
}

func (ep *Endpoint) dispatchSubscribe(p *packets.SubscribePacket) bool {
	ep.log.Debug("dispatched subscribe", "client", ep.clientID, "packet_id", p.PacketID, "topics", p.Topics)
	if ep.cb.Subscribe == nil {
		return true
	}
	return ep.cb.Subscribe(p.PacketID, p.Topics, p.Qoss)
}

func (ep *Endpoint) dispatchSuback(p *packets.SubackPacket) bool {
	ep.log.Debug("dispatched suback", "client", ep.clientID, "packet_id", p.PacketID, "return_codes", p.ReturnCodes)
	ep.inflight.Release(p.PacketID)
	if ep.cb.Suback == nil {
		return true
	}
	return ep.cb.Suback(p.PacketID, p.ReturnCodes)
}

func (ep *Endpoint) dispatchUnsubscribe(p *packets.UnsubscribePacket) bool {
	ep.log.Debug("dispatched unsubscribe", "client", ep.clientID, "packet_id", p.PacketID, "topics", p.Topics)
	if ep.cb.Unsubscribe == nil {
		return true
	}
	return ep.cb.Unsubscribe(p.PacketID, p.Topics)
}

func (ep *Endpoint) dispatchUnsuback(p *packets.UnsubackPacket) bool {
	ep.log.Debug("dispatched unsuback", "client", ep.clientID, "packet_id", p.PacketID)
	ep.inflight.Release(p.PacketID)
	if ep.cb.Unsuback == nil {
		return true
	}
	return ep.cb.Unsuback(p.PacketID)
}

func (ep *Endpoint) dispatchPingreq() bool {
	ep.log.Debug("dispatched pingreq", "client", ep.clientID)
	if ep.cb.Pingreq == nil {
		return true
	}
	return ep.cb.Pingreq()
}

func (ep *Endpoint) dispatchPingresp() bool {
	ep.log.Debug("dispatched pingresp", "client", ep.clientID)
	if ep.cb.Pingresp == nil {
		return true
	}
	return ep.cb.Pingresp()
}

func (ep *Endpoint) dispatchDisconnect() bool {
	ep.log.Debug("dispatched disconnect", "client", ep.clientID)
	if ep.cb.Disconnect == nil {
		return true
	}
	return ep.cb.Disconnect()
}

// autoRespondAck builds and sends a plain PUBACK/PUBREC acknowledgement
// for an inbound PUBLISH, per the auto-response policy: sent only if
// enabled, synchronously or through the write pipeline per the async
// flag, and only while connected (a disconnected endpoint simply drops
// it — the sender will retransmit the PUBLISH with DUP set).
func (ep *Endpoint) autoRespondAck(packetID uint16, respType packets.ControlPacketType) {
	if !ep.autoResponse.Enabled {
		return
	}

	var pk packets.Packet
	switch respType {
	case packets.Puback:
		pk = &packets.PubackPacket{FixedHeader: packets.FixedHeader{Type: packets.Puback}, PacketID: packetID}
	case packets.Pubrec:
		pk = &packets.PubrecPacket{FixedHeader: packets.FixedHeader{Type: packets.Pubrec}, PacketID: packetID}
	default:
		return
	}

	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		ep.raiseError(err)
		return
	}

	if !ep.Connected() {
		return
	}
	ep.sendFrame(fr, packetID, respType)
}

// sendPubrelAutoResponse is the PUBREC auto-response: unlike a plain ack,
// it inserts a new delivery-store entry (expected response PUBCOMP) so
// the PUBREL survives a disconnect and replays on reconnect even if it
// couldn't be sent immediately.
func (ep *Endpoint) sendPubrelAutoResponse(packetID uint16) {
	if !ep.autoResponse.Enabled {
		return
	}

	pk := &packets.PubrelPacket{FixedHeader: packets.FixedHeader{Type: packets.Pubrel}, PacketID: packetID}
	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		ep.raiseError(err)
		return
	}

	ep.inflight.Store(packetID, inflight.ResponseType(packets.Pubcomp), fr)

	if !ep.Connected() {
		return // stored; will replay on the next accepted CONNACK.
	}
	ep.sendFrame(fr, packetID, packets.Pubrel)
}

// sendPubcompAutoResponse is the PUBREL auto-response: a plain ack with
// no store entry of its own (spec's side-effect table does not store
// PUBCOMP on the receiver side).
func (ep *Endpoint) sendPubcompAutoResponse(packetID uint16) {
	if !ep.autoResponse.Enabled {
		return
	}

	pk := &packets.PubcompPacket{FixedHeader: packets.FixedHeader{Type: packets.Pubcomp}, PacketID: packetID}
	fr := packets.NewFrame()
	if err := pk.Encode(fr); err != nil {
		ep.raiseError(err)
		return
	}

	if !ep.Connected() {
		return
	}
	ep.sendFrame(fr, packetID, packets.Pubcomp)
}

// sendFrame writes fr's bytes synchronously or through the write
// pipeline per the negotiated auto-response async flag, firing
// PubResSent once the bytes are confirmed on the wire.
func (ep *Endpoint) sendFrame(fr *packets.Frame, packetID uint16, respType packets.ControlPacketType) {
	buf := fr.Bytes()

	if ep.autoResponse.Async {
		ep.write.EnqueueAsync(buf, func(err error) {
			if err != nil {
				ep.raiseError(err)
				return
			}
			if ep.cb.PubResSent != nil {
				ep.cb.PubResSent(packetID, respType)
			}
		})
		return
	}

	if err := ep.write.WriteSync(buf); err != nil {
		ep.raiseError(err)
		return
	}
	if ep.cb.PubResSent != nil {
		ep.cb.PubResSent(packetID, respType)
	}
}

// raiseError marks the endpoint disconnected and invokes the error
// callback at most once, per spec §7's "error handler runs exactly once,
// then close does not run".
func (ep *Endpoint) raiseError(err error) {
	ep.log.Error("transport error", "error", err, "client", ep.clientID)
	ep.connected.Store(false)
	ep.errOnce.Do(func() {
		if ep.cb.Error != nil {
			ep.cb.Error(err)
		}
	})
	// Spend closeOnce so a later raiseClose does not run Close.
	ep.closeOnce.Do(func() {})
}

// raiseClose marks the endpoint disconnected and invokes the close
// callback at most once, and only if Error has not already fired.
func (ep *Endpoint) raiseClose() {
	ep.log.Debug("connection closed", "client", ep.clientID)
	ep.connected.Store(false)
	ep.closeOnce.Do(func() {
		if ep.cb.Close != nil {
			ep.cb.Close()
		}
	})
	// Spend errOnce so a later raiseError does not run Error.
	ep.errOnce.Do(func() {})
}
