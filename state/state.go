// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"

	"github.com/lsmpool/lsmpool/kv"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/stackedmap"
)

// StorageBucket is the kv bucket holding contract storage.
const StorageBucket = kv.Bucket("s")

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

type storageKey struct {
	addr lsm.Address
	key  lsm.Bytes32
}

func (k storageKey) dbKey() []byte {
	h := lsm.Blake2b(k.addr.Bytes())
	return StorageBucket.Key(append(h[:], k.key[:]...))
}

// State manages contract storage of all contracts and the substrate.
// Every change is journaled, so it can be reverted to any checkpoint.
type State struct {
	db kv.Store
	sm *stackedmap.StackedMap[storageKey, []byte]
}

// New create state object on top of the kv store.
func New(db kv.Store) *State {
	s := &State{db: db}
	s.sm = stackedmap.New(s.dbGetter)
	s.sm.Push()
	return s
}

func (s *State) dbGetter(key storageKey) ([]byte, bool, error) {
	v, err := s.db.Get(key.dbKey())
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// GetRawStorage returns raw storage value for given address and key.
func (s *State) GetRawStorage(addr lsm.Address, key lsm.Bytes32) ([]byte, error) {
	data, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return data, nil
}

// SetRawStorage set raw storage value. Empty value deletes the slot.
func (s *State) SetRawStorage(addr lsm.Address, key lsm.Bytes32, raw []byte) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// EncodeStorage set storage value encoded by given enc method.
// Error returned by end will be absorbed by State instance.
func (s *State) EncodeStorage(addr lsm.Address, key lsm.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
// Error returned by dec will be absorbed by State instance.
func (s *State) DecodeStorage(addr lsm.Address, key lsm.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
	if s.sm.Depth() == 0 {
		s.sm.Push()
	}
}

// Stage collects net changes since the state was created.
func (s *State) Stage() *Stage {
	changes := make(map[storageKey][]byte)
	var order []storageKey
	s.sm.Journal(func(k storageKey, v []byte) bool {
		if _, ok := changes[k]; !ok {
			order = append(order, k)
		}
		changes[k] = v
		return true
	})
	return &Stage{db: s.db, changes: changes, order: order}
}
