// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package linkedlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsmpool/lsmpool/builtin/solidity"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/lvldb"
	"github.com/lsmpool/lsmpool/state"
)

func newList(t *testing.T) *LinkedList {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sctx := solidity.NewContext("cosmos1pool", state.New(db))
	return New(sctx, lsm.BytesToBytes32([]byte("head")), lsm.BytesToBytes32([]byte("tail")), lsm.BytesToBytes32([]byte("count")))
}

func TestLinkedList(t *testing.T) {
	l := newList(t)
	addrs := []lsm.Address{"a", "b", "c", "d"}
	for _, a := range addrs {
		require.NoError(t, l.Add(a))
	}

	n, err := l.Len()
	require.NoError(t, err)
	assert.Equal(t, int64(4), n.Int64())

	var seen []lsm.Address
	require.NoError(t, l.Iter(func(a lsm.Address) (bool, error) {
		seen = append(seen, a)
		return true, nil
	}))
	assert.Equal(t, addrs, seen)

	for _, a := range addrs {
		ok, err := l.Contains(a)
		require.NoError(t, err)
		assert.True(t, ok, a)
	}
	ok, err := l.Contains("z")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, l.Add(""))
}

func TestLinkedListPage(t *testing.T) {
	l := newList(t)
	for _, a := range []lsm.Address{"a", "b", "c", "d", "e"} {
		require.NoError(t, l.Add(a))
	}

	page, err := l.Page("", 2)
	require.NoError(t, err)
	assert.Equal(t, []lsm.Address{"a", "b"}, page)

	page, err = l.Page("b", 2)
	require.NoError(t, err)
	assert.Equal(t, []lsm.Address{"c", "d"}, page)

	page, err = l.Page("d", 10)
	require.NoError(t, err)
	assert.Equal(t, []lsm.Address{"e"}, page)

	page, err = l.Page("e", 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}
