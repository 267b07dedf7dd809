// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsmpool/lsmpool/builtin/locker"
	"github.com/lsmpool/lsmpool/builtin/reverts"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/substrate"
)

func (f *fixture) open(id uint64) map[lsm.VoteOption]lsm.Address {
	f.mustExec(owner, &ExecuteMsg{OpenProposal: &OpenProposalMsg{ProposalID: id, CodeID: codeLocker}})
	lockers := map[lsm.VoteOption]lsm.Address{}
	for _, ref := range f.proposal().Lockers {
		lockers[ref.Option] = ref.Address
	}
	return lockers
}

func (f *fixture) rent(staker lsm.Address, amt int64, option lsm.VoteOption) error {
	_, err := f.exec(staker, &ExecuteMsg{RentVotingPower: &RentMsg{Amount: amount(amt), Option: option}})
	return err
}

func (f *fixture) lockedTotal(lockers map[lsm.VoteOption]lsm.Address) int64 {
	var sum int64
	for _, addr := range lockers {
		sum += f.votingPower(addr)
	}
	return sum
}

func TestOpenProposal(t *testing.T) {
	f := newFixture(t, valoper)
	f.deposit(alice, 1_000_000)
	f.setProposal(42, lsm.StatusVotingPeriod)

	_, err := f.exec(alice, &ExecuteMsg{OpenProposal: &OpenProposalMsg{ProposalID: 42, CodeID: codeLocker}})
	assert.True(t, errors.Is(err, reverts.ErrUnauthorized))

	lockers := f.open(42)
	require.Len(t, lockers, 4)
	p := f.proposal()
	assert.Equal(t, "active", p.Phase)
	assert.Equal(t, uint64(42), p.ProposalID)
	assert.Equal(t, uint64(1), p.Round)

	f.view(func(sim *substrate.Simulated) error {
		count, err := sim.VoteCount(42)
		require.NoError(t, err)
		assert.Equal(t, uint64(4), count)
		for option, addr := range lockers {
			vote, err := sim.VoteOf(addr, 42)
			require.NoError(t, err)
			assert.Equal(t, option, vote)
		}
		return nil
	})
	for option, addr := range lockers {
		v, err := f.rt.Query(f.ctx, addr, &locker.QueryMsg{Config: &struct{}{}})
		require.NoError(t, err)
		cfg := v.(*locker.ConfigResponse)
		assert.Equal(t, option, cfg.Option)
		assert.Equal(t, f.pool, cfg.Owner)
		assert.True(t, cfg.Voted)
		assert.False(t, cfg.Destroyed)
	}

	height, err := f.rt.Height()
	require.NoError(t, err)
	share := f.shares(bob, valoper, 10)
	_, err = f.exec(bob, &ExecuteMsg{Deposit: &struct{}{}}, share)
	assert.True(t, errors.Is(err, reverts.ErrWrongProposalState))
	_, err = f.exec(alice, &ExecuteMsg{Withdraw: &WithdrawMsg{Amount: amount(1)}})
	assert.True(t, errors.Is(err, reverts.ErrWrongProposalState))
	_, err = f.exec(owner, &ExecuteMsg{OpenProposal: &OpenProposalMsg{ProposalID: 43, CodeID: codeLocker}})
	assert.True(t, errors.Is(err, reverts.ErrWrongProposalState))

	after, err := f.rt.Height()
	require.NoError(t, err)
	assert.Equal(t, height+1, after, "only the share minting committed")
	assert.Equal(t, int64(1_000_000), f.total())
	assert.Equal(t, int64(10), f.balance(bob, share.Denom))
}

func TestOpenProposalFails(t *testing.T) {
	f := newFixture(t, valoper)

	_, err := f.exec(owner, &ExecuteMsg{OpenProposal: &OpenProposalMsg{ProposalID: 42, CodeID: codeLocker}})
	assert.True(t, errors.Is(err, reverts.ErrCreationFailed))
	assert.True(t, errors.Is(err, reverts.ErrProposalNotInVoting))
	assert.Equal(t, reverts.KindExternal, reverts.KindOf(err))

	f.setProposal(42, lsm.StatusDepositPeriod)
	_, err = f.exec(owner, &ExecuteMsg{OpenProposal: &OpenProposalMsg{ProposalID: 42, CodeID: codeLocker}})
	assert.True(t, errors.Is(err, reverts.ErrProposalNotInVoting))

	f.setProposal(42, lsm.StatusVotingPeriod)
	_, err = f.exec(owner, &ExecuteMsg{OpenProposal: &OpenProposalMsg{ProposalID: 42, CodeID: 99}})
	assert.True(t, errors.Is(err, reverts.ErrCreationFailed))

	p := f.proposal()
	assert.Equal(t, "idle", p.Phase)
	assert.Empty(t, p.Lockers)
	assert.Zero(t, p.Round)
	f.view(func(sim *substrate.Simulated) error {
		count, err := sim.VoteCount(42)
		require.NoError(t, err)
		assert.Zero(t, count)
		return nil
	})
}

func TestRentAndClose(t *testing.T) {
	f := newFixture(t, valoper)
	f.deposit(alice, 1_000_000)
	f.deposit(bob, 500_000)
	const deposited = 1_500_000

	assert.True(t, errors.Is(f.rent(alice, 1, lsm.VoteYes), reverts.ErrWrongProposalState))
	_, err := f.exec(owner, &ExecuteMsg{CloseProposal: &struct{}{}})
	assert.True(t, errors.Is(err, reverts.ErrWrongProposalState))

	f.setProposal(42, lsm.StatusVotingPeriod)
	lockers := f.open(42)

	require.NoError(t, f.rent(alice, 500_000, lsm.VoteYes))
	assert.Equal(t, int64(500_000), f.votingPower(lockers[lsm.VoteYes]))
	info := f.staker(alice)
	assert.Equal(t, int64(500_000), info.Staked.Big().Int64())
	require.Len(t, info.Locked, 1)
	assert.Equal(t, lsm.VoteYes, info.Locked[0].Option)
	assert.Equal(t, int64(500_000), info.Locked[0].Amount.Big().Int64())
	assert.Equal(t, int64(1_000_000), f.total())
	assert.Equal(t, int64(deposited), f.total()+f.lockedTotal(lockers))

	require.NoError(t, f.rent(bob, 100_000, lsm.VoteNo))
	require.NoError(t, f.rent(alice, 100_000, lsm.VoteNo))
	assert.Equal(t, int64(deposited), f.total()+f.lockedTotal(lockers))

	assert.True(t, errors.Is(f.rent(bob, 400_001, lsm.VoteYes), reverts.ErrInsufficientBalance))
	assert.True(t, errors.Is(f.rent(bob, 0, lsm.VoteYes), reverts.ErrZeroAmount))
	assert.True(t, errors.Is(f.rent(bob, 1, lsm.VoteOption(9)), reverts.ErrUnknownVoteOption))

	f.update(func(sim *substrate.Simulated) error {
		return sim.AccrueRewards(lockers[lsm.VoteYes], valoper, big.NewInt(30_000))
	})

	_, err = f.exec(alice, &ExecuteMsg{CloseProposal: &struct{}{}})
	assert.True(t, errors.Is(err, reverts.ErrUnauthorized))
	_, err = f.exec(owner, &ExecuteMsg{CloseProposal: &struct{}{}})
	assert.True(t, errors.Is(err, reverts.ErrProposalStillActive))

	f.setProposal(42, lsm.StatusPassed)
	receipt := f.mustExec(owner, &ExecuteMsg{CloseProposal: &struct{}{}})
	var restores int
	for _, ev := range receipt.Events {
		if ev.Type == "restore" {
			restores++
		}
	}
	assert.Equal(t, 3, restores)

	assert.Equal(t, "idle", f.proposal().Phase)
	assert.Equal(t, int64(deposited), f.total())
	assert.Zero(t, f.lockedTotal(lockers))
	assert.Equal(t, int64(1_000_000), f.staker(alice).Staked.Big().Int64())
	assert.Equal(t, int64(500_000), f.staker(bob).Staked.Big().Int64())
	assert.Empty(t, f.staker(alice).Locked)

	// locker rewards are distributed over the whole pool
	assert.Equal(t, "0.02", f.index())
	assert.Equal(t, int64(20_000), f.staker(alice).PendingRewards.Big().Int64())
	assert.Equal(t, int64(10_000), f.staker(bob).PendingRewards.Big().Int64())

	for _, addr := range lockers {
		v, err := f.rt.Query(f.ctx, addr, &locker.QueryMsg{Config: &struct{}{}})
		require.NoError(t, err)
		assert.True(t, v.(*locker.ConfigResponse).Destroyed)
	}
	share := f.shares(carol, valoper, 5)
	_, err = f.rt.Execute(f.ctx, carol, lockers[lsm.VoteYes], &locker.ExecuteMsg{ReceiveShares: &struct{}{}}, lsm.Coins{share})
	assert.True(t, errors.Is(err, reverts.ErrDestroyed))

	f.deposit(carol, 1_000)
	assert.Equal(t, int64(deposited+1_000), f.total())

	// a second proposal starts a new round
	f.setProposal(43, lsm.StatusVotingPeriod)
	second := f.open(43)
	assert.Equal(t, uint64(2), f.proposal().Round)
	assert.NotEqual(t, lockers[lsm.VoteYes], second[lsm.VoteYes])
	assert.Empty(t, f.staker(alice).Locked)
}

func TestCloseWithPurgedProposal(t *testing.T) {
	f := newFixture(t, valoper)
	f.deposit(alice, 100)
	f.setProposal(42, lsm.StatusVotingPeriod)
	f.open(42)
	require.NoError(t, f.rent(alice, 60, lsm.VoteAbstain))

	f.update(func(sim *substrate.Simulated) error { return sim.RemoveProposal(42) })
	f.mustExec(owner, &ExecuteMsg{CloseProposal: &struct{}{}})
	assert.Equal(t, int64(100), f.total())
	assert.Equal(t, "0", f.index())
}

func TestLockerGuards(t *testing.T) {
	f := newFixture(t, valoper)
	f.deposit(alice, 100)
	f.setProposal(42, lsm.StatusVotingPeriod)
	lockers := f.open(42)
	yes := lockers[lsm.VoteYes]

	_, err := f.rt.Execute(f.ctx, alice, yes, &locker.ExecuteMsg{Destroy: &struct{}{}}, nil)
	assert.True(t, errors.Is(err, reverts.ErrNotOwningLedger))

	// anyone may hand shares of the configured validator to a locker
	share := f.shares(carol, valoper, 5)
	_, err = f.rt.Execute(f.ctx, carol, yes, &locker.ExecuteMsg{ReceiveShares: &struct{}{}}, lsm.Coins{share})
	require.NoError(t, err)
	assert.Equal(t, int64(5), f.votingPower(yes))

	other := f.shares(carol, valoper2, 5)
	_, err = f.rt.Execute(f.ctx, carol, yes, &locker.ExecuteMsg{ReceiveShares: &struct{}{}}, lsm.Coins{other})
	assert.True(t, errors.Is(err, reverts.ErrInvalidValidator))
	assert.Equal(t, int64(5), f.balance(carol, other.Denom))

	_, err = f.rt.Execute(f.ctx, carol, yes, &locker.ExecuteMsg{}, nil)
	assert.True(t, errors.Is(err, reverts.ErrInvalidMessage))

	// donated principal has no renter and is kept aside at close
	f.setProposal(42, lsm.StatusRejected)
	f.mustExec(owner, &ExecuteMsg{CloseProposal: &struct{}{}})
	resp := f.query(&QueryMsg{TotalStaked: &struct{}{}}).(*TotalStakedResponse)
	assert.Equal(t, int64(100), resp.TotalStaked.Big().Int64())
	assert.Equal(t, int64(5), resp.Unassigned.Big().Int64())
}

func TestVariantPool(t *testing.T) {
	f := newFixture(t, "")
	f.deposit(alice, 100)
	share := f.shares(bob, valoper2, 50)
	f.mustExec(bob, &ExecuteMsg{Deposit: &struct{}{}}, share)
	assert.Equal(t, int64(150), f.total())

	_, err := f.exec(alice, &ExecuteMsg{Withdraw: &WithdrawMsg{Amount: amount(10)}})
	assert.True(t, errors.Is(err, reverts.ErrInvalidValidator))
	f.mustExec(alice, &ExecuteMsg{Withdraw: &WithdrawMsg{Amount: amount(10), Validator: valoper2}})
	assert.Equal(t, int64(140), f.total())

	// rent draws from the delegations in deposit order: 100 from the first
	// validator, the rest from the second
	f.setProposal(7, lsm.StatusVotingPeriod)
	lockers := f.open(7)
	require.NoError(t, f.rent(alice, 90, lsm.VoteNo))
	require.NoError(t, f.rent(bob, 30, lsm.VoteNo))
	assert.Equal(t, int64(120), f.votingPower(lockers[lsm.VoteNo]))
	f.view(func(sim *substrate.Simulated) error {
		d1, err := sim.Delegation(lockers[lsm.VoteNo], valoper)
		require.NoError(t, err)
		d2, err := sim.Delegation(lockers[lsm.VoteNo], valoper2)
		require.NoError(t, err)
		assert.Equal(t, int64(100), d1.Int64())
		assert.Equal(t, int64(20), d2.Int64())
		return nil
	})

	f.setProposal(7, lsm.StatusFailed)
	f.mustExec(owner, &ExecuteMsg{CloseProposal: &struct{}{}})
	assert.Equal(t, int64(140), f.total())
	assert.Equal(t, int64(90), f.staker(alice).Staked.Big().Int64())
	assert.Equal(t, int64(50), f.staker(bob).Staked.Big().Int64())
}
