// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/builtin/linkedlist"
	"github.com/lsmpool/lsmpool/builtin/locker"
	"github.com/lsmpool/lsmpool/builtin/reverts"
	"github.com/lsmpool/lsmpool/builtin/solidity"
	"github.com/lsmpool/lsmpool/decimal"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/runtime"
)

func roundKey(tag string, round uint64, option lsm.VoteOption) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], round)
	return append(append([]byte(tag), b[:]...), option.Bytes()...)
}

func lockedKey(round uint64, option lsm.VoteOption, staker lsm.Address) lsm.Bytes32 {
	return lsm.Blake2b(roundKey("locked", round, option), staker.Bytes())
}

// renters lists the stakers who rented to option in round, in order of first rent.
func (l *Ledger) renters(round uint64, option lsm.VoteOption) *linkedlist.LinkedList {
	sctx := solidity.NewContext(l.env.Self(), l.env.State())
	return linkedlist.New(sctx,
		lsm.Blake2b(roundKey("renters-head", round, option)),
		lsm.Blake2b(roundKey("renters-tail", round, option)),
		lsm.Blake2b(roundKey("renters-count", round, option)),
	)
}

// Locked returns the amount staker rented to option in round.
func (l *Ledger) Locked(round uint64, option lsm.VoteOption, staker lsm.Address) (*big.Int, error) {
	v, err := l.locked.Get(lockedKey(round, option, staker))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return new(big.Int), nil
	}
	return v, nil
}

// Rent moves amount of the staker's free stake to the locker of option, after
// harvesting what the stake earned so far. The staker keeps ownership of the
// principal; it is restored when the proposal closes.
func (l *Ledger) Rent(staker lsm.Address, amount *big.Int, option lsm.VoteOption) error {
	if !option.Valid() {
		return errors.Wrapf(reverts.ErrUnknownVoteOption, "%d", option)
	}
	round, lockerAddr, err := l.gate.ActiveLocker(option)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return reverts.ErrZeroAmount
	}
	if _, err := l.Harvest(); err != nil {
		return err
	}
	acc, err := l.Settle(staker)
	if err != nil {
		return err
	}
	if acc.Staked.Cmp(amount) < 0 {
		return errors.Wrapf(reverts.ErrInsufficientBalance, "staked %v, requested %v", acc.Staked, amount)
	}
	acc.Staked = new(big.Int).Sub(acc.Staked, amount)
	if err := l.accounts.Set(staker, acc); err != nil {
		return err
	}
	if err := l.subTotal(amount); err != nil {
		return err
	}

	locked, err := l.Locked(round, option, staker)
	if err != nil {
		return err
	}
	if locked.Sign() == 0 {
		if err := l.renters(round, option).Add(staker); err != nil {
			return err
		}
	}
	if locked, err = decimal.SafeAdd(locked, amount); err != nil {
		return err
	}
	if err := l.locked.Set(lockedKey(round, option, staker), locked); err != nil {
		return err
	}

	msgs, err := l.tokenizeFor(lockerAddr, amount)
	if err != nil {
		return err
	}
	if _, err := l.env.Dispatch(msgs...); err != nil {
		return err
	}
	logger.Debug("rent voting power", "staker", staker, "option", option, "amount", amount, "locker", lockerAddr)
	return nil
}

// tokenizeFor draws amount from the ledger delegations in validator order and
// builds one ReceiveShares message per share.
func (l *Ledger) tokenizeFor(lockerAddr lsm.Address, amount *big.Int) ([]runtime.SubMsg, error) {
	vals, err := l.Validators()
	if err != nil {
		return nil, err
	}
	var (
		staking   = l.env.Staking()
		remaining = new(big.Int).Set(amount)
		msgs      []runtime.SubMsg
	)
	for _, val := range vals {
		if remaining.Sign() == 0 {
			break
		}
		delegated, err := staking.Delegation(l.env.Self(), val)
		if err != nil {
			return nil, err
		}
		if delegated.Sign() == 0 {
			continue
		}
		take := new(big.Int).Set(remaining)
		if delegated.Cmp(take) < 0 {
			take.Set(delegated)
		}
		share, err := staking.TokenizeShares(l.env.Self(), val, take, l.env.Self())
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, runtime.SubMsg{
			ID: uint64(len(msgs)),
			Execute: &runtime.ExecuteMsg{
				Contract: lockerAddr,
				Msg:      &locker.ExecuteMsg{ReceiveShares: &struct{}{}},
				Funds:    lsm.Coins{share},
			},
		})
		remaining.Sub(remaining, take)
	}
	if remaining.Sign() > 0 {
		return nil, errors.Wrapf(reverts.ErrSubstrate, "ledger delegations short by %v", remaining)
	}
	return msgs, nil
}

// Restored is the principal given back to one renter at close.
type Restored struct {
	Staker lsm.Address
	Amount *big.Int
}

// RestoreRented gives principal recovered from the locker of option back to
// the renters of round, proportionally to what each locked. The rounding
// residue goes to the first renter. Principal with no renter to claim it is
// recorded as unassigned.
func (l *Ledger) RestoreRented(round uint64, option lsm.VoteOption, principal *big.Int) ([]Restored, error) {
	list := l.renters(round, option)
	var (
		renters []lsm.Address
		amounts []*big.Int
		sum     = new(big.Int)
	)
	err := list.Iter(func(staker lsm.Address) (bool, error) {
		locked, err := l.Locked(round, option, staker)
		if err != nil {
			return false, err
		}
		renters = append(renters, staker)
		amounts = append(amounts, locked)
		sum.Add(sum, locked)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if sum.Sign() == 0 {
		if principal.Sign() > 0 {
			logger.Warn("recovered principal without renters", "option", option, "amount", principal)
			if err := l.unassigned.Add(principal); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	parts := make([]*big.Int, len(renters))
	given := new(big.Int)
	for i, locked := range amounts {
		parts[i] = new(big.Int).Mul(locked, principal)
		parts[i].Quo(parts[i], sum)
		given.Add(given, parts[i])
	}
	parts[0].Add(parts[0], new(big.Int).Sub(principal, given))

	restored := make([]Restored, 0, len(renters))
	for i, staker := range renters {
		acc, err := l.Settle(staker)
		if err != nil {
			return nil, err
		}
		if acc.Staked, err = decimal.SafeAdd(acc.Staked, parts[i]); err != nil {
			return nil, err
		}
		if err := l.accounts.Set(staker, acc); err != nil {
			return nil, err
		}
		l.locked.Delete(lockedKey(round, option, staker))
		restored = append(restored, Restored{Staker: staker, Amount: parts[i]})
	}
	if err := l.addTotal(principal); err != nil {
		return nil, err
	}
	return restored, nil
}

// DistributeRecovered folds rewards recovered from lockers into the index.
// Rewards recovered into an empty pool stay on the ledger balance and are
// recorded as unassigned.
func (l *Ledger) DistributeRecovered(rewards *big.Int) error {
	if rewards.Sign() == 0 {
		return nil
	}
	total, err := l.total.Get()
	if err != nil {
		return err
	}
	if total.Sign() == 0 {
		logger.Warn("recovered rewards into empty pool", "amount", rewards)
		return l.unassigned.Add(rewards)
	}
	return l.distribute(rewards)
}

// TrackValidator records a validator the ledger holds a delegation with.
func (l *Ledger) TrackValidator(valoper string) error {
	return l.trackValidator(valoper)
}
