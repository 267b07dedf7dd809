// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/substrate"
)

func (f *fixture) accrue(amount int64) {
	f.update(func(sim *substrate.Simulated) error {
		return sim.AccrueRewards(f.pool, valoper, big.NewInt(amount))
	})
}

func (f *fixture) claim(staker lsm.Address) int64 {
	before := f.balance(staker, "stake")
	f.mustExec(staker, &ExecuteMsg{ClaimRewards: &struct{}{}})
	return f.balance(staker, "stake") - before
}

func TestAccruedRewardsBeforeDeposit(t *testing.T) {
	f := newFixture(t, valoper)
	f.deposit(alice, 1_000)
	f.accrue(400)
	f.deposit(bob, 3_000)

	assert.Equal(t, "0.4", f.index())
	assert.Equal(t, int64(400), f.staker(alice).PendingRewards.Big().Int64())
	assert.Zero(t, f.staker(bob).PendingRewards.Big().Int64())

	assert.Zero(t, f.claim(bob))
	assert.Equal(t, int64(400), f.claim(alice))
}

func TestAccruedRewardsBeforeWithdraw(t *testing.T) {
	f := newFixture(t, valoper)
	f.deposit(alice, 1_000)
	f.deposit(bob, 1_000)
	f.accrue(200)

	f.mustExec(alice, &ExecuteMsg{Withdraw: &WithdrawMsg{Amount: amount(1_000)}})
	assert.Equal(t, int64(1_000), f.total())
	assert.Zero(t, f.staker(alice).Staked.Big().Int64())
	assert.Equal(t, int64(100), f.staker(alice).PendingRewards.Big().Int64())

	assert.Equal(t, int64(100), f.claim(alice))
	assert.Equal(t, int64(100), f.claim(bob))
}

func TestAccruedRewardsBeforeRent(t *testing.T) {
	f := newFixture(t, valoper)
	f.deposit(alice, 1_000)
	f.deposit(bob, 1_000)
	f.setProposal(42, lsm.StatusVotingPeriod)
	lockers := f.open(42)
	f.accrue(200)

	require.NoError(t, f.rent(alice, 1_000, lsm.VoteYes))
	assert.Equal(t, int64(1_000), f.votingPower(lockers[lsm.VoteYes]))
	assert.Equal(t, int64(1_000), f.total())
	assert.Equal(t, int64(100), f.staker(alice).PendingRewards.Big().Int64())
	assert.Equal(t, int64(100), f.staker(bob).PendingRewards.Big().Int64())

	assert.Equal(t, int64(100), f.claim(bob))
	assert.Equal(t, int64(100), f.claim(alice))
}
