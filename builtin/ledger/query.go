// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/lsmpool/lsmpool/decimal"
	"github.com/lsmpool/lsmpool/lsm"
)

const (
	// DefaultPageLimit is the stakers page size when none is given.
	DefaultPageLimit = 10
	// MaxPageLimit bounds the stakers page size.
	MaxPageLimit = 30
)

// LockedAmount is the stake rented to one vote option.
type LockedAmount struct {
	Option lsm.VoteOption `json:"option"`
	Amount *lsm.Amount    `json:"amount"`
}

// StakerInfo is the view of a staker account.
type StakerInfo struct {
	Address        lsm.Address    `json:"address"`
	Staked         *lsm.Amount    `json:"staked_amount"`
	Locked         []LockedAmount `json:"locked_amount"`
	RewardIndex    decimal.Dec    `json:"reward_index"`
	PendingRewards *lsm.Amount    `json:"pending_rewards"`
}

// SimulatedIndex returns the index as if the rewards accrued by the ledger
// delegations had been harvested.
func (l *Ledger) SimulatedIndex() (decimal.Dec, error) {
	index, err := l.index.Get()
	if err != nil {
		return decimal.Dec{}, err
	}
	total, err := l.total.Get()
	if err != nil {
		return decimal.Dec{}, err
	}
	if total.Sign() == 0 {
		return index, nil
	}
	vals, err := l.Validators()
	if err != nil {
		return decimal.Dec{}, err
	}
	accrued := new(big.Int)
	for _, val := range vals {
		amount, err := l.env.Staking().PendingRewards(l.env.Self(), val)
		if err != nil {
			return decimal.Dec{}, err
		}
		accrued.Add(accrued, amount)
	}
	if accrued.Sign() == 0 {
		return index, nil
	}
	delta, err := decimal.FromRatio(accrued, total)
	if err != nil {
		return decimal.Dec{}, err
	}
	return index.Add(delta)
}

// StakerInfo returns the account view of staker with pending rewards settled
// against the simulated index. Unknown stakers yield zero balances.
func (l *Ledger) StakerInfo(staker lsm.Address) (*StakerInfo, error) {
	index, err := l.SimulatedIndex()
	if err != nil {
		return nil, err
	}
	return l.stakerInfo(staker, index)
}

func (l *Ledger) stakerInfo(staker lsm.Address, index decimal.Dec) (*StakerInfo, error) {
	acc, err := l.Account(staker)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = newAccount(index)
	}
	if err := acc.settle(index); err != nil {
		return nil, err
	}
	info := &StakerInfo{
		Address:        staker,
		Staked:         lsm.NewAmount(acc.Staked),
		Locked:         []LockedAmount{},
		RewardIndex:    acc.Snapshot,
		PendingRewards: lsm.NewAmount(acc.Pending),
	}

	round, open, err := l.gate.Round()
	if err != nil {
		return nil, err
	}
	if open {
		for _, option := range lsm.VoteOptions {
			locked, err := l.Locked(round, option, staker)
			if err != nil {
				return nil, err
			}
			if locked.Sign() > 0 {
				info.Locked = append(info.Locked, LockedAmount{Option: option, Amount: lsm.NewAmount(locked)})
			}
		}
	}
	return info, nil
}

// Stakers lists stakers in order of first deposit, after the cursor.
func (l *Ledger) Stakers(startAfter lsm.Address, limit int) ([]*StakerInfo, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	index, err := l.SimulatedIndex()
	if err != nil {
		return nil, err
	}
	page, err := l.stakers.Page(startAfter, limit)
	if err != nil {
		return nil, err
	}
	infos := make([]*StakerInfo, 0, len(page))
	for _, staker := range page {
		info, err := l.stakerInfo(staker, index)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}
