// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/lvldb"
)

func newMemState(t *testing.T) (*State, *lvldb.LevelDB) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), db
}

func TestStorageCheckpoint(t *testing.T) {
	st, _ := newMemState(t)
	addr := lsm.Address("cosmos1contract")
	key := lsm.BytesToBytes32([]byte("k"))

	raw, err := st.GetRawStorage(addr, key)
	require.NoError(t, err)
	assert.Empty(t, raw)

	st.SetRawStorage(addr, key, []byte{1})
	cp := st.NewCheckpoint()
	st.SetRawStorage(addr, key, []byte{2})
	st.SetRawStorage(addr, lsm.BytesToBytes32([]byte("other")), []byte{3})

	raw, _ = st.GetRawStorage(addr, key)
	assert.Equal(t, []byte{2}, raw)

	st.RevertTo(cp)
	raw, _ = st.GetRawStorage(addr, key)
	assert.Equal(t, []byte{1}, raw)
	raw, _ = st.GetRawStorage(addr, lsm.BytesToBytes32([]byte("other")))
	assert.Empty(t, raw)
}

func TestStageCommit(t *testing.T) {
	st, db := newMemState(t)
	addr := lsm.Address("cosmos1contract")
	k1 := lsm.BytesToBytes32([]byte("k1"))
	k2 := lsm.BytesToBytes32([]byte("k2"))

	st.SetRawStorage(addr, k1, []byte("a"))
	st.SetRawStorage(addr, k1, []byte("b"))
	st.SetRawStorage(addr, k2, []byte("c"))

	stage := st.Stage()
	assert.Equal(t, 2, stage.Len())
	require.NoError(t, stage.Commit())

	fresh := New(db)
	raw, err := fresh.GetRawStorage(addr, k1)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), raw)

	fresh.SetRawStorage(addr, k2, nil)
	require.NoError(t, fresh.Stage().Commit())

	raw, err = New(db).GetRawStorage(addr, k2)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestRevertBelowBase(t *testing.T) {
	st, _ := newMemState(t)
	addr := lsm.Address("cosmos1contract")
	st.SetRawStorage(addr, lsm.Bytes32{1}, []byte{1})
	st.RevertTo(0)

	raw, err := st.GetRawStorage(addr, lsm.Bytes32{1})
	require.NoError(t, err)
	assert.Empty(t, raw)
	// still writable after reverting everything
	st.SetRawStorage(addr, lsm.Bytes32{1}, []byte{2})
}
