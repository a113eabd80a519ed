package inflight

import (
	"sync"

	"github.com/flowmq/endpoint/packets"
)

// ResponseType identifies which response packet type a StoreEntry is
// waiting for: PUBACK for a QoS1 PUBLISH, PUBREC for a QoS2 PUBLISH, or
// PUBCOMP for a PUBREL. SUBSCRIBE/UNSUBSCRIBE ids are reserved in the
// allocator but never stored.
type ResponseType packets.ControlPacketType

// StoreEntry is one outstanding delivery. Frame is the already-serialized
// packet buffer; Frame.SetDup mutates its fixed-header byte in place for
// replay, per spec 4.G.
type StoreEntry struct {
	PacketID uint16
	Response ResponseType
	Frame    *packets.Frame
}

// Inflight combines the packet-id allocator (component F) and the
// delivery store (component G) behind a single mutex, per spec 4.F:
// "Mutations of in_use and of the delivery store share a single mutex;
// they are always acquired together to preserve the invariant 'id in-use
// iff store has an entry or it is a SUBACK/UNSUBACK awaiting response'."
type Inflight struct {
	mu sync.Mutex

	inUse  map[uint16]struct{}
	cursor uint16

	byIDType map[idType]*StoreEntry
	byID     map[uint16][]*StoreEntry
	order    []*StoreEntry
}

// New returns an empty Inflight.
func New() *Inflight {
	return &Inflight{
		inUse:    make(map[uint16]struct{}),
		byIDType: make(map[idType]*StoreEntry),
		byID:     make(map[uint16][]*StoreEntry),
	}
}

// Store records a new delivery awaiting resp, keeping id's reservation in
// the allocator untouched (the id is already reserved by AcquireUnique or
// Register before Store is called).
func (in *Inflight) Store(id uint16, resp ResponseType, fr *packets.Frame) {
	in.mu.Lock()
	defer in.mu.Unlock()

	e := &StoreEntry{PacketID: id, Response: resp, Frame: fr}
	in.byIDType[idType{id, resp}] = e
	in.byID[id] = append(in.byID[id], e)
	in.order = append(in.order, e)
}

// Take removes and returns the unique entry for (id, resp) if present —
// the response-arrival path for PUBACK/PUBREC/PUBCOMP.
func (in *Inflight) Take(id uint16, resp ResponseType) (*StoreEntry, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()

	key := idType{id, resp}
	e, ok := in.byIDType[key]
	if !ok {
		return nil, false
	}
	delete(in.byIDType, key)
	in.removeFromByID(e)
	in.removeFromOrder(e)
	return e, true
}

// ClearStoredPublish removes every entry for id regardless of response
// type — the caller-forgets-message path.
func (in *Inflight) ClearStoredPublish(id uint16) {
	in.mu.Lock()
	defer in.mu.Unlock()

	for _, e := range in.byID[id] {
		delete(in.byIDType, idType{e.PacketID, e.Response})
		in.removeFromOrder(e)
	}
	delete(in.byID, id)
}

func (in *Inflight) removeFromByID(e *StoreEntry) {
	list := in.byID[e.PacketID]
	for i, v := range list {
		if v == e {
			in.byID[e.PacketID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(in.byID[e.PacketID]) == 0 {
		delete(in.byID, e.PacketID)
	}
}

func (in *Inflight) removeFromOrder(e *StoreEntry) {
	for i, v := range in.order {
		if v == e {
			in.order = append(in.order[:i], in.order[i+1:]...)
			break
		}
	}
}

// IterateStored calls fn once per stored entry in insertion order — the
// order the entries were originally sent in. Used for session replay and
// must not reorder: a receiver relies on DUP flags matching the original
// send sequence for its own duplicate detection.
func (in *Inflight) IterateStored(fn func(*StoreEntry)) {
	in.mu.Lock()
	entries := make([]*StoreEntry, len(in.order))
	copy(entries, in.order)
	in.mu.Unlock()

	for _, e := range entries {
		fn(e)
	}
}

// Reset empties the store and releases every reserved packet id. Used on
// a clean_session=true CONNACK.
func (in *Inflight) Reset() {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.inUse = make(map[uint16]struct{})
	in.byIDType = make(map[idType]*StoreEntry)
	in.byID = make(map[uint16][]*StoreEntry)
	in.order = nil
	in.cursor = 0
}

// Len reports the number of stored entries awaiting a response.
func (in *Inflight) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.order)
}
