// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsmpool/lsmpool/lsm"
)

func newEvents(contract lsm.Address, types ...string) []*Event {
	events := make([]*Event, 0, len(types))
	for _, typ := range types {
		events = append(events, &Event{
			Contract:   contract,
			Type:       typ,
			Attributes: []Attribute{{Key: "method", Value: typ}},
		})
	}
	return events
}

func TestEvents(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.Write(ctx, 1, "cosmos1alice", newEvents("cosmos1pool", "deposit")))
	require.NoError(t, db.Write(ctx, 2, "cosmos1owner", newEvents("cosmos1pool", "open_proposal", "instantiate")))
	require.NoError(t, db.Write(ctx, 2+1, "cosmos1bob", newEvents("cosmos1locker", "vote")))

	all, err := db.FilterEvents(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, lsm.Address("cosmos1alice"), all[0].Sender)
	assert.Equal(t, []Attribute{{Key: "method", Value: "deposit"}}, all[0].Attributes)

	pool, err := db.FilterEvents(ctx, &EventFilter{Contract: "cosmos1pool", Order: DESC})
	require.NoError(t, err)
	require.Len(t, pool, 3)
	assert.Equal(t, "instantiate", pool[0].Type)
	assert.Equal(t, uint32(1), pool[0].EventIndex)

	ranged, err := db.FilterEvents(ctx, &EventFilter{Range: &Range{From: 2, To: 2}})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	typed, err := db.FilterEvents(ctx, &EventFilter{Type: "vote", Options: &Options{Offset: 0, Limit: 10}})
	require.NoError(t, err)
	require.Len(t, typed, 1)
	assert.Equal(t, uint64(3), typed[0].Height)

	paged, err := db.FilterEvents(ctx, &EventFilter{Options: &Options{Offset: 1, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, paged, 2)
	assert.Equal(t, "open_proposal", paged[0].Type)
}

func TestDuplicateEventRejected(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.Write(ctx, 1, "a", newEvents("c", "x")))
	assert.Error(t, db.Write(ctx, 1, "a", newEvents("c", "y")))

	all, err := db.FilterEvents(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
