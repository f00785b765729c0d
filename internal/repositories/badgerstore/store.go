// Package badgerstore implements the repositories on an embedded BadgerDB.
//
// Key layout (single byte prefixes, IDs encoded big endian so prefix scans
// come back in ID order):
//
//	0x01 entry:id                       -> Entry (JSON)
//	0x02 tag:id                         -> Tag
//	0x03 relation_type:id               -> RelationType
//	0x04 relation:id                    -> Relation
//	0x05 team_tokens:team:league        -> TeamTokens
//	0x10 name:kind:name                 -> id
//	0x11 tagged:tag:entry               -> {}
//	0x12 outgoing:from:type:relation    -> {}
//	0x13 incoming:to:type:relation      -> {}
//	0x14 by_type:type:relation          -> {}
//	0x15 league:league:team             -> {}
//	0x20 sequence:kind                  -> badger sequence
package badgerstore

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/asakaida/eurocore/internal/entities"
	"github.com/asakaida/eurocore/internal/repositories"
	"github.com/dgraph-io/badger/v4"
)

const (
	prefixEntry         = byte(0x01)
	prefixTag           = byte(0x02)
	prefixRelationType  = byte(0x03)
	prefixRelation      = byte(0x04)
	prefixTeamTokens    = byte(0x05)
	prefixName          = byte(0x10)
	prefixTagIndex      = byte(0x11)
	prefixOutgoingIndex = byte(0x12)
	prefixIncomingIndex = byte(0x13)
	prefixTypeIndex     = byte(0x14)
	prefixLeagueIndex   = byte(0x15)
	prefixSequence      = byte(0x20)
)

// sequenceBandwidth is how many IDs a sequence leases per transaction.
const sequenceBandwidth = 64

// maxTxnAttempts bounds how often a write is replayed after badger reports
// that a concurrent commit touched the keys it read.
const maxTxnAttempts = 3

// Store owns the ID sequences of one BadgerDB and hands out repositories on it.
type Store struct {
	db *badger.DB

	mu        sync.Mutex
	sequences map[byte]*badger.Sequence
}

// New creates a store on an open BadgerDB. The caller keeps ownership of db.
func New(db *badger.DB) *Store {
	return &Store{
		db:        db,
		sequences: make(map[byte]*badger.Sequence),
	}
}

// Registry wires every repository onto the store
func (s *Store) Registry() *repositories.Registry {
	entries := newEntryBucket(s)
	tags := newTagBucket(s)
	relationTypes := newRelationTypeBucket(s)

	return &repositories.Registry{
		Entries:       &EntryRepository{bucket: entries, tags: tags},
		Tags:          &TagRepository{bucket: tags, entries: entries},
		RelationTypes: &RelationTypeRepository{bucket: relationTypes},
		Relations:     &RelationRepository{store: s, entries: entries, relationTypes: relationTypes},
		TeamTokens:    &TeamTokensRepository{store: s, entries: entries},
	}
}

// Close releases the leased ID ranges. It does not close the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for prefix, seq := range s.sequences {
		if err := seq.Release(); err != nil {
			errs = append(errs, fmt.Errorf("failed to release sequence %#x: %w", prefix, err))
		}
		delete(s.sequences, prefix)
	}
	return errors.Join(errs...)
}

// update runs fn in a read-write transaction. fn is replayed on
// badger.ErrConflict so checks such as the name index see the winning commit
// and report their own error. fn must not carry state across attempts.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		if err = s.db.Update(fn); !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", entities.ErrConflict, err)
}

// nextID returns the next ID of a kind. IDs start at 1.
func (s *Store) nextID(prefix byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.sequences[prefix]
	if !ok {
		var err error
		seq, err = s.db.GetSequence([]byte{prefixSequence, prefix}, sequenceBandwidth)
		if err != nil {
			return 0, fmt.Errorf("failed to open sequence: %w", err)
		}
		s.sequences[prefix] = seq
	}

	n, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate ID: %w", err)
	}
	return int64(n) + 1, nil
}

// key builds prefix + big endian IDs.
func key(prefix byte, ids ...int64) []byte {
	k := make([]byte, 1, 1+8*len(ids))
	k[0] = prefix
	for _, id := range ids {
		k = binary.BigEndian.AppendUint64(k, uint64(id))
	}
	return k
}

// lastID extracts the trailing ID of an index key.
func lastID(k []byte) int64 {
	return int64(binary.BigEndian.Uint64(k[len(k)-8:]))
}

func nameKey(kind byte, name string) []byte {
	k := make([]byte, 0, 2+len(name))
	k = append(k, prefixName, kind)
	return append(k, name...)
}

func encodeID(id int64) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(id))
}

func getJSON[T any](txn *badger.Txn, k []byte) (*T, error) {
	item, err := txn.Get(k)
	if err != nil {
		return nil, err
	}
	var v T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &v)
	}); err != nil {
		return nil, fmt.Errorf("failed to decode %x: %w", k, err)
	}
	return &v, nil
}

func setJSON(txn *badger.Txn, k []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %x: %w", k, err)
	}
	return txn.Set(k, data)
}

func exists(txn *badger.Txn, k []byte) (bool, error) {
	_, err := txn.Get(k)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// scanIDs returns the trailing IDs of every key under prefix.
func scanIDs(txn *badger.Txn, prefix []byte) []int64 {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []int64
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		ids = append(ids, lastID(it.Item().Key()))
	}
	return ids
}

// hasPrefix reports whether any key lives under prefix.
func hasPrefix(txn *badger.Txn, prefix []byte) bool {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	it.Seek(prefix)
	return it.ValidForPrefix(prefix)
}

// scanJSON decodes every value under prefix.
func scanJSON[T any](txn *badger.Txn, prefix []byte) ([]*T, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var out []*T
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var v T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return nil, fmt.Errorf("failed to decode %x: %w", it.Item().Key(), err)
		}
		out = append(out, &v)
	}
	return out, nil
}
