// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package proposal

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lsmpool/lsmpool/lsm"
)

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "opening", PhaseOpening.String())
	assert.Equal(t, "active", PhaseActive.String())
	assert.Equal(t, "closing", PhaseClosing.String())
	assert.Equal(t, "unknown", Phase(9).String())
}

func TestRecordLocker(t *testing.T) {
	yes := lsm.CreateContractAddress(2, 2)
	no := lsm.CreateContractAddress(2, 3)
	rec := &Record{
		Phase:              PhaseClosing,
		Round:              3,
		ProposalID:         7,
		Lockers:            []LockerRef{{Option: lsm.VoteYes, Address: yes}, {Option: lsm.VoteNo, Address: no}},
		RecoveredPrincipal: big.NewInt(10),
	}
	assert.Equal(t, yes, rec.Locker(lsm.VoteYes))
	assert.Equal(t, no, rec.Locker(lsm.VoteNo))
	assert.True(t, rec.Locker(lsm.VoteAbstain).IsZero())

	// the round survives the return to idle, everything else is cleared
	assert.Equal(t, &Record{Phase: PhaseIdle, Round: 3}, rec.idle())
}
