package endpoint

import (
	"github.com/flowmq/endpoint/inflight"
	"github.com/flowmq/endpoint/packets"
)

// replaySession runs the reconnect side effect spec §4.C assigns to an
// accepted CONNACK: on a clean session, the delivery store is meaningless
// (the peer has none of it either) and is wiped; otherwise every stored
// entry is retransmitted, in original send order, with DUP set on the
// ones the peer would otherwise think are a fresh delivery (PUBLISH
// awaiting PUBACK or PUBREC). The replay write is always synchronous —
// it must land before any newly-issued action can interleave with it.
func (ep *Endpoint) replaySession() {
	ep.mu.Lock()
	clean := ep.cleanSession
	ep.mu.Unlock()

	if clean {
		ep.log.Debug("clean session, resetting delivery store", "client", ep.clientID)
		ep.inflight.Reset()
		return
	}

	ep.log.Debug("replaying delivery store", "client", ep.clientID, "entries", ep.inflight.Len())
	ep.inflight.IterateStored(func(e *inflight.StoreEntry) {
		if e.Response == inflight.ResponseType(packets.Puback) || e.Response == inflight.ResponseType(packets.Pubrec) {
			e.Frame.SetDup(true)
		}
		if err := ep.write.WriteSync(e.Frame.Bytes()); err != nil {
			ep.raiseError(err)
		}
	})
}
