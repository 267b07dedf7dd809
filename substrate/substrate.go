// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package substrate defines the staking, bank and governance capabilities the
// ledgers consume, and a simulated implementation kept in contract storage.
package substrate

import (
	"math/big"

	"github.com/lsmpool/lsmpool/lsm"
)

// Bank moves coins between accounts.
type Bank interface {
	Send(from, to lsm.Address, coins lsm.Coins) error
	Balance(addr lsm.Address, denom string) (*big.Int, error)
}

// Staking is the staking module with liquid staking extensions.
type Staking interface {
	BondDenom() string
	ValidatorExists(valoper string) (bool, error)
	Delegation(delegator lsm.Address, valoper string) (*big.Int, error)
	// TokenizeShares converts amount of the delegator's delegation into a share coin owned by owner.
	TokenizeShares(delegator lsm.Address, valoper string, amount *big.Int, owner lsm.Address) (lsm.Coin, error)
	// RedeemTokens burns a share coin held by holder and adds the equivalent delegation to holder.
	RedeemTokens(holder lsm.Address, share lsm.Coin) (valoper string, amount *big.Int, err error)
	// Undelegate starts unbonding amount from the delegator's delegation on behalf of recipient.
	Undelegate(delegator lsm.Address, valoper string, amount *big.Int, recipient lsm.Address) error
	// WithdrawRewards pays the accrued rewards of a delegation to the delegator.
	WithdrawRewards(delegator lsm.Address, valoper string) (*big.Int, error)
	PendingRewards(delegator lsm.Address, valoper string) (*big.Int, error)
}

// Gov is the governance module.
type Gov interface {
	ProposalStatus(id uint64) (status lsm.ProposalStatus, found bool, err error)
	Vote(voter lsm.Address, id uint64, option lsm.VoteOption) error
}
