// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/lsmpool/lsmpool/decimal"
)

// Account is the ledger record of a staker. Accounts are never deleted.
type Account struct {
	Staked   *big.Int
	Snapshot decimal.Dec
	Pending  *big.Int
}

func newAccount(index decimal.Dec) *Account {
	return &Account{Staked: new(big.Int), Snapshot: index, Pending: new(big.Int)}
}

func (a *Account) normalize() {
	if a.Staked == nil {
		a.Staked = new(big.Int)
	}
	if a.Pending == nil {
		a.Pending = new(big.Int)
	}
}

// settle folds index growth since the snapshot into pending.
func (a *Account) settle(index decimal.Dec) error {
	delta, err := index.Sub(a.Snapshot)
	if err != nil {
		return err
	}
	increment, err := delta.MulTrunc(a.Staked)
	if err != nil {
		return err
	}
	pending, err := decimal.SafeAdd(a.Pending, increment)
	if err != nil {
		return err
	}
	a.Pending = pending
	a.Snapshot = index
	return nil
}
