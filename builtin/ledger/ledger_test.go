// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsmpool/lsmpool/builtin/reverts"
	"github.com/lsmpool/lsmpool/decimal"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/lvldb"
	"github.com/lsmpool/lsmpool/runtime"
	"github.com/lsmpool/lsmpool/substrate"
)

const valoper = "cosmosvaloper1abc"

type fakeGate struct {
	phase  string
	round  uint64
	locker lsm.Address
}

func (g *fakeGate) RequireIdle() error {
	if g.phase != "" {
		return reverts.ErrWrongProposalState
	}
	return nil
}

func (g *fakeGate) ActiveLocker(option lsm.VoteOption) (uint64, lsm.Address, error) {
	if g.phase != "active" {
		return 0, "", reverts.ErrWrongProposalState
	}
	return g.round, g.locker, nil
}

func (g *fakeGate) Round() (uint64, bool, error) {
	return g.round, g.phase != "", nil
}

// withLedger runs fn against a ledger stored at the empty address, with the
// ledger funded by shares worth the given amounts.
func withLedger(t *testing.T, gate Gate, fn func(l *Ledger, sim *substrate.Simulated) error) error {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	rt := runtime.New(db, nil, "stake")
	_, err = rt.Update(context.Background(), "test", func(env *runtime.Env, sim *substrate.Simulated) error {
		if err := sim.AddValidator(valoper); err != nil {
			return err
		}
		l := New(env, gate, nil)
		if err := l.Init(&Config{Owner: "owner", StakingDenom: "stake", Validator: valoper}); err != nil {
			return err
		}
		return fn(l, sim)
	})
	return err
}

func deposit(t *testing.T, l *Ledger, sim *substrate.Simulated, staker lsm.Address, amount int64) {
	share, err := sim.MintShares("", valoper, big.NewInt(amount))
	require.NoError(t, err)
	got, err := l.Deposit(staker, lsm.Coins{share})
	require.NoError(t, err)
	require.Equal(t, amount, got.Int64())
}

func TestSettle(t *testing.T) {
	err := withLedger(t, &fakeGate{}, func(l *Ledger, sim *substrate.Simulated) error {
		deposit(t, l, sim, "alice", 1_000_000)

		total, err := l.TotalStaked()
		require.NoError(t, err)
		assert.Equal(t, int64(1_000_000), total.Int64())

		require.NoError(t, sim.Mint("", lsm.NewCoin("stake", big.NewInt(100_000))))
		_, err = l.DepositRewards(lsm.Coins{lsm.NewCoin("stake", big.NewInt(100_000))})
		require.NoError(t, err)

		index, err := l.Index()
		require.NoError(t, err)
		assert.Equal(t, "0.1", index.String())

		acc, err := l.Settle("alice")
		require.NoError(t, err)
		assert.Equal(t, int64(100_000), acc.Pending.Int64())
		assert.Equal(t, index, acc.Snapshot)
		return nil
	})
	require.NoError(t, err)
}

func TestSettleTruncates(t *testing.T) {
	err := withLedger(t, &fakeGate{}, func(l *Ledger, sim *substrate.Simulated) error {
		for _, staker := range []lsm.Address{"a", "b", "c"} {
			deposit(t, l, sim, staker, 1)
		}
		prev := decimal.Zero()
		deposited := int64(0)
		for i := 0; i < 3; i++ {
			require.NoError(t, sim.Mint("", lsm.NewCoin("stake", big.NewInt(10))))
			_, err := l.DepositRewards(lsm.Coins{lsm.NewCoin("stake", big.NewInt(10))})
			require.NoError(t, err)
			deposited += 10

			index, err := l.Index()
			require.NoError(t, err)
			assert.True(t, index.Cmp(prev) > 0)
			prev = index
		}
		claimed := int64(0)
		for _, staker := range []lsm.Address{"a", "b", "c"} {
			amount, err := l.ClaimRewards(staker)
			require.NoError(t, err)
			claimed += amount.Int64()
		}
		assert.LessOrEqual(t, claimed, deposited)
		assert.GreaterOrEqual(t, claimed, deposited-3)
		return nil
	})
	require.NoError(t, err)
}

func TestDepositRewardsEmptyPool(t *testing.T) {
	err := withLedger(t, &fakeGate{}, func(l *Ledger, sim *substrate.Simulated) error {
		_, err := l.DepositRewards(lsm.Coins{lsm.NewCoin("stake", big.NewInt(5))})
		assert.True(t, errors.Is(err, reverts.ErrEmptyPool))

		_, err = l.DepositRewards(lsm.Coins{lsm.NewCoin("atom", big.NewInt(5))})
		assert.True(t, errors.Is(err, reverts.ErrInvalidFunds))

		_, err = l.DepositRewards(nil)
		assert.True(t, errors.Is(err, reverts.ErrWrongCoinCount))
		return nil
	})
	require.NoError(t, err)
}

func TestDepositGated(t *testing.T) {
	err := withLedger(t, &fakeGate{phase: "active"}, func(l *Ledger, sim *substrate.Simulated) error {
		share, err := sim.MintShares("", valoper, big.NewInt(10))
		require.NoError(t, err)
		_, err = l.Deposit("alice", lsm.Coins{share})
		assert.True(t, errors.Is(err, reverts.ErrWrongProposalState))

		_, err = l.Withdraw("alice", big.NewInt(1), "", WithdrawTokenize)
		assert.True(t, errors.Is(err, reverts.ErrWrongProposalState))
		return nil
	})
	require.NoError(t, err)
}

func TestRestoreRented(t *testing.T) {
	gate := &fakeGate{}
	err := withLedger(t, gate, func(l *Ledger, sim *substrate.Simulated) error {
		deposit(t, l, sim, "alice", 100)
		deposit(t, l, sim, "bob", 100)
		deposit(t, l, sim, "carol", 100)

		// lock by hand: the locker side is exercised by the pool tests
		for i, staker := range []lsm.Address{"alice", "bob", "carol"} {
			amount := int64(10 * (i + 1))
			acc, err := l.Settle(staker)
			require.NoError(t, err)
			acc.Staked.Sub(acc.Staked, big.NewInt(amount))
			require.NoError(t, l.accounts.Set(staker, acc))
			require.NoError(t, l.subTotal(big.NewInt(amount)))
			require.NoError(t, l.renters(1, lsm.VoteYes).Add(staker))
			require.NoError(t, l.locked.Set(lockedKey(1, lsm.VoteYes, staker), big.NewInt(amount)))
		}
		gate.phase, gate.round = "closing", 1

		// 59 recovered out of 60 locked: floor parts 9, 19, 29 and the residue to alice
		restored, err := l.RestoreRented(1, lsm.VoteYes, big.NewInt(59))
		require.NoError(t, err)
		require.Len(t, restored, 3)
		got := map[lsm.Address]int64{}
		for _, r := range restored {
			got[r.Staker] = r.Amount.Int64()
		}
		assert.Equal(t, map[lsm.Address]int64{"alice": 11, "bob": 19, "carol": 29}, got)

		total, err := l.TotalStaked()
		require.NoError(t, err)
		assert.Equal(t, int64(240+59), total.Int64())

		for _, staker := range []lsm.Address{"alice", "bob", "carol"} {
			locked, err := l.Locked(1, lsm.VoteYes, staker)
			require.NoError(t, err)
			assert.Zero(t, locked.Sign())
		}

		// nobody rented No
		restored, err = l.RestoreRented(1, lsm.VoteNo, big.NewInt(7))
		require.NoError(t, err)
		assert.Empty(t, restored)
		unassigned, err := l.Unassigned()
		require.NoError(t, err)
		assert.Equal(t, int64(7), unassigned.Int64())
		return nil
	})
	require.NoError(t, err)
}

func TestWithdrawMode(t *testing.T) {
	mode, err := ParseWithdrawMode("")
	require.NoError(t, err)
	assert.Equal(t, WithdrawTokenize, mode)
	mode, err = ParseWithdrawMode("undelegate")
	require.NoError(t, err)
	assert.Equal(t, WithdrawUndelegate, mode)
	_, err = ParseWithdrawMode("burn")
	assert.True(t, errors.Is(err, reverts.ErrInvalidMessage))
}

func TestResolveValidator(t *testing.T) {
	fixed := &Config{Validator: valoper}
	v, err := fixed.resolveValidator("")
	require.NoError(t, err)
	assert.Equal(t, valoper, v)
	_, err = fixed.resolveValidator("cosmosvaloper1other")
	assert.True(t, errors.Is(err, reverts.ErrInvalidValidator))

	variant := &Config{}
	_, err = variant.resolveValidator("")
	assert.True(t, errors.Is(err, reverts.ErrInvalidValidator))
	v, err = variant.resolveValidator("osmosisvaloper1x")
	require.NoError(t, err)
	assert.Equal(t, "osmosisvaloper1x", v)
}
