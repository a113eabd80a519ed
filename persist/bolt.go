// Package persist is an opt-in, caller-side snapshot of an endpoint's
// delivery store to a boltdb file, so stored QoS1/QoS2 deliveries survive
// a process restart and not just a reconnect. The core never imports this
// package — it composes entirely through Endpoint.IterateStored and the
// same (packetID, responseType, frame bytes) shape Endpoint.RestoreStored
// accepts,
// per spec §1's "persistence beyond process memory is a caller concern".
// Grounded on the teacher's hooks/storage/bolt Hook, stripped from a
// multi-entity (client/subscription/retained/sysinfo) hook down to the
// single delivery-store concern this core actually has.
package persist

import (
	"encoding/binary"
	"errors"
	"time"

	"go.etcd.io/bbolt"

	"github.com/flowmq/endpoint/packets"
)

// ErrKeyNotFound mirrors the teacher's bolt hook's sentinel for a missing
// bucket entry.
var ErrKeyNotFound = errors.New("persist: key not found")

const (
	defaultBucket  = "flowmq-inflight"
	defaultTimeout = 250 * time.Millisecond
)

// Options configures a bbolt-backed Store, grounded on the teacher's
// bolt.Options.
type Options struct {
	Path    string         `yaml:"path" json:"path"`
	Bucket  string         `yaml:"bucket" json:"bucket"`
	Options *bbolt.Options `yaml:"-" json:"-"`
}

// Store snapshots an endpoint's delivery store to a boltdb file.
type Store struct {
	db     *bbolt.DB
	bucket string
}

// Open opens (creating if necessary) the boltdb file at opts.Path.
func Open(opts Options) (*Store, error) {
	if opts.Bucket == "" {
		opts.Bucket = defaultBucket
	}
	if opts.Options == nil {
		opts.Options = &bbolt.Options{Timeout: defaultTimeout}
	}

	db, err := bbolt.Open(opts.Path, 0o600, opts.Options)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(opts.Bucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, bucket: opts.Bucket}, nil
}

// Close closes the underlying boltdb file.
func (s *Store) Close() error {
	return s.db.Close()
}

// entryKey packs a packet id and response type into a fixed 3-byte key,
// so a packet id that travels PUBREC-then-PUBCOMP doesn't collide with
// itself across the two response types it's stored under in sequence.
func entryKey(packetID uint16, responseType packets.ControlPacketType) []byte {
	b := make([]byte, 3)
	binary.BigEndian.PutUint16(b, packetID)
	b[2] = byte(responseType)
	return b
}

// Snapshot replaces the bucket's entire contents with exactly what iter
// yields, in one boltdb transaction. Call with an endpoint's
// IterateStored to persist its current delivery store.
func (s *Store) Snapshot(iter func(yield func(packetID uint16, responseType packets.ControlPacketType, buf []byte))) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(s.bucket))

		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}

		var putErr error
		iter(func(packetID uint16, responseType packets.ControlPacketType, buf []byte) {
			if putErr != nil {
				return
			}
			putErr = b.Put(entryKey(packetID, responseType), buf)
		})
		return putErr
	})
}

// Restore calls fn once per persisted entry in ascending packet-id order,
// so a caller can re-insert them into a fresh delivery store — e.g. via
// Endpoint.RestoreStored, which takes exactly this (packetID, responseType,
// buf) shape — before resuming a session.
func (s *Store) Restore(fn func(packetID uint16, responseType packets.ControlPacketType, buf []byte) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(s.bucket))
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if len(k) != 3 {
				continue
			}
			packetID := binary.BigEndian.Uint16(k[:2])
			responseType := packets.ControlPacketType(k[2])
			if err := fn(packetID, responseType, append([]byte(nil), v...)); err != nil {
				return err
			}
		}
		return nil
	})
}
