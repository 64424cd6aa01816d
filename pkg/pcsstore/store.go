// Package pcsstore implements the concurrent PCS state store (spec.md
// §4.3) and the subscription freshness state machine that guards every
// write to it (spec.md §4.4). Two Store instances exist for the life of
// the process, one per LAN; callers own that pairing, not this package.
package pcsstore

import (
	"sync"
	"time"

	"github.com/runZeroInc/pcsgw/internal/mapping"
)

// numShards is the shard count for the sharded map. Logical ids are
// distributed across shards by id % numShards, so any two logical ids on
// different shards can be mutated concurrently without contention (spec.md
// §4.3: "two workers operating on different PCS records never contend").
const numShards = 64

type shard struct {
	mu      sync.RWMutex
	records map[uint16]*Record
}

type indexEntry struct {
	LogicalID uint16
	PCSType   string
}

// Store is the sharded concurrent PCS map for one LAN.
type Store struct {
	shards        [numShards]*shard
	index         map[uint16]indexEntry // GOOSE APPID -> (logical_id, pcs_type), read-only after New
	ttlGrace      time.Duration
	bytePositions mapping.BytePositionMap // pcs_type -> allData layout, read-only after New; nil disables extraction
}

// New builds a Store from a validated nameplate batch. ttlGrace is the
// grace period added to 2x a publisher's advertised TTL before a record is
// considered invalid (spec.md §3 "PCS record" invalidity_deadline).
// bytePositions drives the MaxCharge/MaxDischarge/MaxInductive/
// MaxCapacitive/SOC/IsControllable extraction on every accepted update
// (spec.md §6.3/§6.5); a nil map just leaves those fields at their zero
// value, which is how tests that don't care about telemetry extraction
// call New.
func New(nameplates []*Nameplate, ttlGrace time.Duration, bytePositions mapping.BytePositionMap) *Store {
	s := &Store{
		index:         make(map[uint16]indexEntry, len(nameplates)),
		ttlGrace:      ttlGrace,
		bytePositions: bytePositions,
	}
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[uint16]*Record)}
	}
	for _, np := range nameplates {
		sh := s.shardFor(np.LogicalID)
		sh.records[np.LogicalID] = newRecord(np)
		s.index[np.GooseAPPID] = indexEntry{LogicalID: np.LogicalID, PCSType: np.PCSType}
	}
	return s
}

func (s *Store) shardFor(logicalID uint16) *shard {
	return s.shards[logicalID%numShards]
}

// ResolveAPPID looks up the logical_id and pcs_type for a GOOSE APPID via
// the read-only index built at startup (spec.md §3 "APPID index").
func (s *Store) ResolveAPPID(appid uint16) (logicalID uint16, pcsType string, ok bool) {
	e, ok := s.index[appid]
	return e.LogicalID, e.PCSType, ok
}

// View takes a shared read lock on logicalID's shard and invokes fn with
// its Record (spec.md §4.3 "get"). It reports false if no such record
// exists.
func (s *Store) View(logicalID uint16, fn func(*Record)) bool {
	sh := s.shardFor(logicalID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	rec, ok := sh.records[logicalID]
	if !ok {
		return false
	}
	fn(rec)
	return true
}

// WithRecord takes an exclusive lock on logicalID's shard and invokes fn
// with its Record (spec.md §4.3 "get_mut"). Other shards remain available
// to other goroutines while fn runs.
func (s *Store) WithRecord(logicalID uint16, fn func(*Record)) bool {
	sh := s.shardFor(logicalID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	rec, ok := sh.records[logicalID]
	if !ok {
		return false
	}
	fn(rec)
	return true
}

// Keys snapshots every logical_id currently in the store. Per the lock
// discipline design note, iteration snapshots keys first and visits
// shards afterwards — no lock is held across the whole scan.
func (s *Store) Keys() []uint16 {
	var keys []uint16
	for _, sh := range s.shards {
		sh.mu.RLock()
		for id := range sh.records {
			keys = append(keys, id)
		}
		sh.mu.RUnlock()
	}
	return keys
}
