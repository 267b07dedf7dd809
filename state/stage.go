// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import "github.com/lsmpool/lsmpool/kv"

// Stage holds the net storage changes of a state, ready to be committed.
type Stage struct {
	db      kv.Store
	changes map[storageKey][]byte
	order   []storageKey
}

// Len returns the number of changed slots.
func (st *Stage) Len() int {
	return len(st.order)
}

// Commit writes all changes in one batch.
func (st *Stage) Commit() error {
	batch := st.db.NewBatch()
	for _, k := range st.order {
		v := st.changes[k]
		if len(v) == 0 {
			if err := batch.Delete(k.dbKey()); err != nil {
				return &Error{err}
			}
			continue
		}
		if err := batch.Put(k.dbKey(), v); err != nil {
			return &Error{err}
		}
	}
	if err := batch.Write(); err != nil {
		return &Error{err}
	}
	return nil
}
