// Package inflight implements the packet-id allocator and delivery store
// (spec components F and G): the set of packet ids currently in use, and
// the three-way index of outstanding deliveries awaiting a terminal
// response. Grounded on the teacher's Inflight type in inflight.go,
// generalized from QoS-quota counters to an explicit in-use id set plus a
// proper delivery index.
package inflight

import "errors"

// ErrPacketIDExhausted is returned by AcquireUnique when all 65535
// non-zero packet ids are currently in use.
var ErrPacketIDExhausted = errors.New("inflight: packet id space exhausted")

// idType keys the by-(packet-id, response-type) index.
type idType struct {
	id   uint16
	resp ResponseType
}

// AcquireUnique atomically allocates a packet id not currently in use,
// skipping 0. The cursor only advances forward (wrapping past 0), so ids
// are handed out roughly round-robin rather than always starting at 1.
func (in *Inflight) AcquireUnique() (uint16, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if len(in.inUse) >= 65535 {
		return 0, ErrPacketIDExhausted
	}

	for {
		in.cursor++
		if in.cursor == 0 {
			in.cursor = 1
		}
		if _, ok := in.inUse[in.cursor]; !ok {
			in.inUse[in.cursor] = struct{}{}
			return in.cursor, nil
		}
	}
}

// Register reserves a caller-supplied id instead of allocating a fresh one
// from AcquireUnique's cursor — the path a caller re-admitting a persisted
// delivery-store entry after a restart needs, so AcquireUnique can't later
// hand out an id still outstanding from before the restart (see Endpoint's
// RestoreStored). It returns false without effect if id is 0 or already in
// flight.
func (in *Inflight) Register(id uint16) bool {
	if id == 0 {
		return false
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	if _, ok := in.inUse[id]; ok {
		return false
	}
	in.inUse[id] = struct{}{}
	return true
}

// Release frees id for reuse. It is a no-op if id was not in use. Callers
// are responsible for also clearing any store entry for id first — release
// does not touch the delivery store.
func (in *Inflight) Release(id uint16) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.inUse, id)
}

// InUse reports whether id is currently reserved.
func (in *Inflight) InUse(id uint16) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	_, ok := in.inUse[id]
	return ok
}
