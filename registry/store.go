// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

import (
	"bytes"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Store is the account-storage abstraction the registry program reads and
// writes. It stands in for a chain's account database: claim accounts are
// addressed by ClaimKey from account.go (the PDA-seed equivalent), miner
// accounts by their authority and the registry by one fixed key, and
// ListClaims is the store-side primitive a relay's
// "enumerate candidate claims on-chain" scan (spec.md §4.5) is built on.
type Store interface {
	GetRegistry() (*Registry, bool, error)
	PutRegistry(*Registry) error

	GetMiner(authority [32]byte) (*Miner, bool, error)
	PutMiner(*Miner) error

	GetClaim(key []byte) (*Claim, bool, error)
	PutClaim(key []byte, c *Claim) error

	// ListClaims returns every claim account currently stored. Order is
	// unspecified; callers needing a deterministic view (the relay) sort
	// client-side.
	ListClaims() ([]*Claim, error)
}

// MemStore is an in-memory Store, used by unit and scenario tests and by
// single-process local-net tooling where durability across restarts does
// not matter.
type MemStore struct {
	mu       sync.RWMutex
	registry *Registry
	miners   map[[32]byte]*Miner
	claims   map[string]*Claim
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		miners: make(map[[32]byte]*Miner),
		claims: make(map[string]*Claim),
	}
}

func (s *MemStore) GetRegistry() (*Registry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.registry == nil {
		return nil, false, nil
	}
	cp := *s.registry
	return &cp, true, nil
}

func (s *MemStore) PutRegistry(r *Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.registry = &cp
	return nil
}

func (s *MemStore) GetMiner(authority [32]byte) (*Miner, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.miners[authority]
	if !ok {
		return nil, false, nil
	}
	cp := *m
	return &cp, true, nil
}

func (s *MemStore) PutMiner(m *Miner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.miners[m.Authority] = &cp
	return nil
}

func (s *MemStore) GetClaim(key []byte) (*Claim, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[string(key)]
	if !ok {
		return nil, false, nil
	}
	cp := *c
	return &cp, true, nil
}

func (s *MemStore) PutClaim(key []byte, c *Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.claims[string(key)] = &cp
	return nil
}

func (s *MemStore) ListClaims() ([]*Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Claim, 0, len(s.claims))
	for _, c := range s.claims {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// registryDBKey and the two prefixes below namespace account kinds within
// the single leveldb keyspace.
var (
	registryDBKey  = []byte("acct/registry")
	minerKeyPrefix = []byte("acct/miner/")
	claimKeyPrefix = []byte("acct/claim/")
)

// LevelStore is a goleveldb-backed Store, giving the registry the same
// durability-across-restarts property a real account database provides.
type LevelStore struct {
	db *leveldb.DB
}

// OpenLevelStore opens (creating if absent) a leveldb store at path.
func OpenLevelStore(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelStore{db: db}, nil
}

// Close releases the underlying leveldb handle.
func (s *LevelStore) Close() error { return s.db.Close() }

func (s *LevelStore) GetRegistry() (*Registry, bool, error) {
	buf, err := s.db.Get(registryDBKey, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	r, err := DecodeRegistry(buf)
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

func (s *LevelStore) PutRegistry(r *Registry) error {
	return s.db.Put(registryDBKey, r.Encode(), nil)
}

func (s *LevelStore) minerDBKey(authority [32]byte) []byte {
	return append(append([]byte{}, minerKeyPrefix...), authority[:]...)
}

func (s *LevelStore) GetMiner(authority [32]byte) (*Miner, bool, error) {
	buf, err := s.db.Get(s.minerDBKey(authority), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	m, err := DecodeMiner(buf)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

func (s *LevelStore) PutMiner(m *Miner) error {
	return s.db.Put(s.minerDBKey(m.Authority), m.Encode(), nil)
}

func (s *LevelStore) claimDBKey(key []byte) []byte {
	return append(append([]byte{}, claimKeyPrefix...), key...)
}

func (s *LevelStore) GetClaim(key []byte) (*Claim, bool, error) {
	buf, err := s.db.Get(s.claimDBKey(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	c, err := DecodeClaim(buf)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func (s *LevelStore) PutClaim(key []byte, c *Claim) error {
	return s.db.Put(s.claimDBKey(key), c.Encode(), nil)
}

func (s *LevelStore) ListClaims() ([]*Claim, error) {
	iter := s.db.NewIterator(util.BytesPrefix(claimKeyPrefix), nil)
	defer iter.Release()

	var out []*Claim
	for iter.Next() {
		val := bytes.Clone(iter.Value())
		c, err := DecodeClaim(val)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, iter.Error()
}
