// Package endpoint implements the MQTT 3.1.1 endpoint orchestrator
// (spec component H), tying the wire codec, assembler, builder, write
// pipeline, and delivery store together into a single bidirectional
// state machine that can play either the client or the server role.
// Grounded on the teacher's Server/Client shape in server.go and
// clients.go, generalized from a broker-only role to the spec's
// symmetric endpoint.
package endpoint

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/flowmq/endpoint/inflight"
	"github.com/flowmq/endpoint/packets"
	"github.com/flowmq/endpoint/transport"
	"github.com/rs/xid"
)

// PublishMessage is the decoded view of a PUBLISH handed to the user
// callback, per spec §3's PublishMessage data model entry.
type PublishMessage struct {
	Topic    string
	Payload  []byte
	Qos      byte
	Retain   bool
	Dup      bool
	PacketID uint16 // 0 when Qos == 0
}

// Callbacks holds one optional hook per control packet type plus the
// close/error/pub-response-sent hooks, per spec §4.H. A hook returning
// false from a packet-type callback terminates the receive loop cleanly;
// a nil hook defaults to "continue".
type Callbacks struct {
	Connect     func(clientID, userName string, password string, will *packets.Will, cleanSession bool, keepAlive uint16) bool
	Connack     func(sessionPresent bool, returnCode byte) bool
	Publish     func(msg PublishMessage) bool
	Puback      func(packetID uint16) bool
	Pubrec      func(packetID uint16) bool
	Pubrel      func(packetID uint16) bool
	Pubcomp     func(packetID uint16) bool
	Subscribe   func(packetID uint16, topics []string, qoss []byte) bool
	Suback      func(packetID uint16, returnCodes []byte) bool
	Unsubscribe func(packetID uint16, topics []string) bool
	Unsuback    func(packetID uint16) bool
	Pingreq     func() bool
	Pingresp    func() bool
	Disconnect  func() bool

	// Close runs exactly once on a clean EOF.
	Close func()
	// Error runs exactly once on any other transport error.
	Error func(error)
	// PubResSent runs after an auto-response (PUBACK/PUBREC/PUBREL/PUBCOMP)
	// is actually placed on the wire.
	PubResSent func(packetID uint16, responseType packets.ControlPacketType)
}

// Endpoint owns all connection state for one MQTT 3.1.1 session: it can
// originate CONNECT/PUBLISH/SUBSCRIBE (client role) or CONNACK/PUBACK/
// SUBACK (server role) over the same machinery, since the wire format and
// delivery-state rules are symmetric — only which packets an instance
// sends versus receives differs by role.
type Endpoint struct {
	mu sync.Mutex // guards the pre-connect config fields below

	clientID     string
	cleanSession bool
	userName     string
	password     string
	will         *packets.Will
	keepAlive    uint16
	autoResponse AutoResponse

	stream transport.Stream
	asm    *packets.Assembler
	write  *writePipeline

	inflight *inflight.Inflight

	// qos2Received tracks inbound QoS2 packet ids already delivered to
	// the user, for idempotent duplicate detection per spec §3.
	qos2mu       sync.Mutex
	qos2Received map[uint16]struct{}

	connected atomic.Bool

	// errOnce/closeOnce ensure Error and Close each fire at most once,
	// per spec §7, even if multiple failures race (e.g. an auto-response
	// write failing while the receive loop independently hits EOF).
	errOnce   sync.Once
	closeOnce sync.Once

	cb  Callbacks
	log *slog.Logger
}

// New returns an Endpoint ready to configure and connect over stream.
func New(stream transport.Stream, opts *Options) *Endpoint {
	if opts == nil {
		opts = new(Options)
	}
	opts.ensureDefaults()

	ep := &Endpoint{
		clientID:     opts.ClientID,
		cleanSession: opts.CleanSession,
		userName:     opts.UserName,
		password:     opts.Password,
		keepAlive:    opts.KeepAlive,
		autoResponse: opts.AutoPubResponse,

		stream:       stream,
		asm:          packets.NewAssembler(streamReader{stream}),
		write:        newWritePipeline(stream),
		inflight:     inflight.New(),
		qos2Received: make(map[uint16]struct{}),
		log:          opts.Logger,
	}

	if ep.clientID == "" {
		ep.clientID = xid.New().String()
	}

	return ep
}

// streamReader adapts transport.Stream's ReadExact to an io.Reader the
// packet assembler can pull fixed bytes from. Each Read takes exactly one
// byte from the stream, so a buffered reader asking for more than one
// packet's worth never blocks waiting for bytes the peer has not sent.
type streamReader struct {
	s transport.Stream
}

func (r streamReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := r.s.ReadExact(p[:1]); err != nil {
		return 0, err
	}
	return 1, nil
}

// --- Configuration (pre-connect) ---

func (ep *Endpoint) SetClientID(id string) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.clientID = id
}

func (ep *Endpoint) SetCleanSession(clean bool) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.cleanSession = clean
}

func (ep *Endpoint) SetUserName(name string) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.userName = name
}

func (ep *Endpoint) SetPassword(pass string) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.password = pass
}

func (ep *Endpoint) SetWill(w *packets.Will) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.will = w
}

func (ep *Endpoint) SetAutoPubResponse(enabled, async bool) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.autoResponse = AutoResponse{Enabled: enabled, Async: async}
}

// --- Callback registration ---

func (ep *Endpoint) OnConnect(fn func(clientID, userName, password string, will *packets.Will, cleanSession bool, keepAlive uint16) bool) {
	ep.cb.Connect = fn
}
func (ep *Endpoint) OnConnack(fn func(sessionPresent bool, returnCode byte) bool) { ep.cb.Connack = fn }
func (ep *Endpoint) OnPublish(fn func(msg PublishMessage) bool)                   { ep.cb.Publish = fn }
func (ep *Endpoint) OnPuback(fn func(packetID uint16) bool)                       { ep.cb.Puback = fn }
func (ep *Endpoint) OnPubrec(fn func(packetID uint16) bool)                       { ep.cb.Pubrec = fn }
func (ep *Endpoint) OnPubrel(fn func(packetID uint16) bool)                       { ep.cb.Pubrel = fn }
func (ep *Endpoint) OnPubcomp(fn func(packetID uint16) bool)                      { ep.cb.Pubcomp = fn }
func (ep *Endpoint) OnSubscribe(fn func(packetID uint16, topics []string, qoss []byte) bool) {
	ep.cb.Subscribe = fn
}
func (ep *Endpoint) OnSuback(fn func(packetID uint16, returnCodes []byte) bool) { ep.cb.Suback = fn }
func (ep *Endpoint) OnUnsubscribe(fn func(packetID uint16, topics []string) bool) {
	ep.cb.Unsubscribe = fn
}
func (ep *Endpoint) OnUnsuback(fn func(packetID uint16) bool)            { ep.cb.Unsuback = fn }
func (ep *Endpoint) OnPingreq(fn func() bool)                            { ep.cb.Pingreq = fn }
func (ep *Endpoint) OnPingresp(fn func() bool)                           { ep.cb.Pingresp = fn }
func (ep *Endpoint) OnDisconnect(fn func() bool)                         { ep.cb.Disconnect = fn }
func (ep *Endpoint) OnClose(fn func())                                  { ep.cb.Close = fn }
func (ep *Endpoint) OnError(fn func(error))                              { ep.cb.Error = fn }
func (ep *Endpoint) OnPubResSent(fn func(packetID uint16, responseType packets.ControlPacketType)) {
	ep.cb.PubResSent = fn
}

// Connected reports whether the transport is currently believed live.
func (ep *Endpoint) Connected() bool {
	return ep.connected.Load()
}

// ClearStoredPublish forgets a stored outbound message regardless of its
// delivery state, per spec §4.H.
func (ep *Endpoint) ClearStoredPublish(packetID uint16) {
	ep.inflight.ClearStoredPublish(packetID)
	ep.inflight.Release(packetID)
}

// IterateStored calls fn once per stored outbound entry in original send
// order, for caller-side persistence (spec §6's iterate_stored).
func (ep *Endpoint) IterateStored(fn func(packetID uint16, responseType packets.ControlPacketType, buf []byte)) {
	ep.inflight.IterateStored(func(e *inflight.StoreEntry) {
		fn(e.PacketID, packets.ControlPacketType(e.Response), e.Frame.Bytes())
	})
}

// RestoreStored re-admits one persisted delivery-store entry — typically
// one yielded by persist.Store.Restore — into the in-memory store ahead of
// a reconnect, using the packet-id allocator's caller-supplied-id path
// (inflight.Register) rather than AcquireUnique. It reports false without
// effect if packetID is 0 or still in use, which should not happen for a
// freshly constructed Endpoint restoring its own prior session.
func (ep *Endpoint) RestoreStored(packetID uint16, responseType packets.ControlPacketType, buf []byte) bool {
	if !ep.inflight.Register(packetID) {
		return false
	}
	ep.inflight.Store(packetID, inflight.ResponseType(responseType), packets.NewFrameFromBytes(buf))
	return true
}
