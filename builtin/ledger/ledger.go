// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledger implements the reward index accounting of the pool: staker
// balances, the cumulative reward index and the rented voting power.
package ledger

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/builtin/linkedlist"
	"github.com/lsmpool/lsmpool/builtin/reverts"
	"github.com/lsmpool/lsmpool/builtin/shares"
	"github.com/lsmpool/lsmpool/builtin/solidity"
	"github.com/lsmpool/lsmpool/cache"
	"github.com/lsmpool/lsmpool/decimal"
	"github.com/lsmpool/lsmpool/log"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/runtime"
)

var logger = log.WithContext("pkg", "ledger")

var (
	slotConfig      = lsm.BytesToBytes32([]byte("config"))
	slotIndex       = lsm.BytesToBytes32([]byte("reward-index"))
	slotTotal       = lsm.BytesToBytes32([]byte("total-staked"))
	slotAccounts    = lsm.BytesToBytes32([]byte("accounts"))
	slotStakerHead  = lsm.BytesToBytes32([]byte("stakers-head"))
	slotStakerTail  = lsm.BytesToBytes32([]byte("stakers-tail"))
	slotStakerCount = lsm.BytesToBytes32([]byte("stakers-count"))
	slotValHead     = lsm.BytesToBytes32([]byte("validators-head"))
	slotValTail     = lsm.BytesToBytes32([]byte("validators-tail"))
	slotValCount    = lsm.BytesToBytes32([]byte("validators-count"))
	slotLocked      = lsm.BytesToBytes32([]byte("locked"))
	slotUnassigned  = lsm.BytesToBytes32([]byte("unassigned"))
)

// Gate exposes the proposal state the ledger operations depend on.
type Gate interface {
	// RequireIdle fails with ErrWrongProposalState unless no proposal is open.
	RequireIdle() error
	// ActiveLocker returns the rental round and the locker of option, failing
	// with ErrWrongProposalState unless a proposal is active.
	ActiveLocker(option lsm.VoteOption) (round uint64, locker lsm.Address, err error)
	// Round returns the current rental round and whether a proposal is open.
	Round() (round uint64, open bool, err error)
}

// Ledger is the accounting engine, bound to the storage of the pool contract.
type Ledger struct {
	env        *runtime.Env
	gate       Gate
	known      *cache.LRU[string, bool]
	config     *solidity.Raw[*Config]
	index      *solidity.Raw[decimal.Dec]
	total      *solidity.Uint256
	unassigned *solidity.Uint256
	accounts   *solidity.Mapping[lsm.Address, *Account]
	stakers    *linkedlist.LinkedList
	validators *linkedlist.LinkedList
	locked     *solidity.Mapping[lsm.Bytes32, *big.Int]
}

// New binds a ledger to the running contract. known caches validator lookups
// and may be nil.
func New(env *runtime.Env, gate Gate, known *cache.LRU[string, bool]) *Ledger {
	sctx := solidity.NewContext(env.Self(), env.State())
	return &Ledger{
		env:        env,
		gate:       gate,
		known:      known,
		config:     solidity.NewRaw[*Config](sctx, slotConfig),
		index:      solidity.NewRaw[decimal.Dec](sctx, slotIndex),
		total:      solidity.NewUint256(sctx, slotTotal),
		unassigned: solidity.NewUint256(sctx, slotUnassigned),
		accounts:   solidity.NewMapping[lsm.Address, *Account](sctx, slotAccounts),
		stakers:    linkedlist.New(sctx, slotStakerHead, slotStakerTail, slotStakerCount),
		validators: linkedlist.New(sctx, slotValHead, slotValTail, slotValCount),
		locked:     solidity.NewMapping[lsm.Bytes32, *big.Int](sctx, slotLocked),
	}
}

// Init stores the initial configuration.
func (l *Ledger) Init(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Validator != "" {
		exists, err := l.env.Staking().ValidatorExists(cfg.Validator)
		if err != nil {
			return err
		}
		if !exists {
			return errors.Wrapf(reverts.ErrValidatorNotFound, "%s", cfg.Validator)
		}
	}
	return l.config.Set(cfg)
}

// Config returns the stored configuration.
func (l *Ledger) Config() (*Config, error) {
	cfg, err := l.config.Get()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errors.New("ledger: not initialized")
	}
	return cfg, nil
}

// RequireOwner fails with ErrUnauthorized unless sender is the owner.
func (l *Ledger) RequireOwner(sender lsm.Address) error {
	cfg, err := l.Config()
	if err != nil {
		return err
	}
	if sender != cfg.Owner {
		return errors.Wrapf(reverts.ErrUnauthorized, "%s", sender)
	}
	return nil
}

// UpdateConfig changes the owner and the max cap. Nil fields are left unchanged.
func (l *Ledger) UpdateConfig(sender lsm.Address, owner *lsm.Address, maxCap *big.Int) (*Config, error) {
	if err := l.RequireOwner(sender); err != nil {
		return nil, err
	}
	cfg, err := l.Config()
	if err != nil {
		return nil, err
	}
	if owner != nil {
		addr, err := lsm.ParseAddress(owner.String(), lsm.AccountPrefix)
		if err != nil {
			return nil, reverts.WithCause(reverts.ErrInvalidMessage, errors.WithMessage(err, "owner"))
		}
		cfg.Owner = addr
	}
	if maxCap != nil {
		if err := decimal.CheckAmount(maxCap); err != nil {
			return nil, err
		}
		cfg.MaxCap = new(big.Int).Set(maxCap)
	}
	if err := l.config.Set(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Index returns the global reward index.
func (l *Ledger) Index() (decimal.Dec, error) {
	return l.index.Get()
}

// TotalStaked returns the sum of free staked amounts.
func (l *Ledger) TotalStaked() (*big.Int, error) {
	return l.total.Get()
}

// Unassigned returns principal recovered at close that no renter could claim.
func (l *Ledger) Unassigned() (*big.Int, error) {
	return l.unassigned.Get()
}

// Account returns the account of staker, or nil if it never deposited.
func (l *Ledger) Account(staker lsm.Address) (*Account, error) {
	acc, err := l.accounts.Get(staker)
	if err != nil {
		return nil, err
	}
	if acc != nil {
		acc.normalize()
	}
	return acc, nil
}

// Settle folds the index growth since the staker's snapshot into its pending rewards.
func (l *Ledger) Settle(staker lsm.Address) (*Account, error) {
	index, err := l.index.Get()
	if err != nil {
		return nil, err
	}
	acc, err := l.Account(staker)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return newAccount(index), nil
	}
	if err := acc.settle(index); err != nil {
		return nil, err
	}
	return acc, nil
}

func (l *Ledger) saveAccount(staker lsm.Address, acc *Account) error {
	exists, err := l.stakers.Contains(staker)
	if err != nil {
		return err
	}
	if !exists {
		if err := l.stakers.Add(staker); err != nil {
			return err
		}
	}
	return l.accounts.Set(staker, acc)
}

func (l *Ledger) addTotal(delta *big.Int) error {
	total, err := l.total.Get()
	if err != nil {
		return err
	}
	sum, err := decimal.SafeAdd(total, delta)
	if err != nil {
		return err
	}
	return l.total.Set(sum)
}

func (l *Ledger) subTotal(delta *big.Int) error {
	total, err := l.total.Get()
	if err != nil {
		return err
	}
	diff, err := decimal.SafeSub(total, delta)
	if err != nil {
		return err
	}
	return l.total.Set(diff)
}

func (l *Ledger) trackValidator(valoper string) error {
	exists, err := l.validators.Contains(lsm.Address(valoper))
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return l.validators.Add(lsm.Address(valoper))
}

// Validators returns the validators the ledger has delegated to, in order.
func (l *Ledger) Validators() ([]string, error) {
	var vals []string
	err := l.validators.Iter(func(addr lsm.Address) (bool, error) {
		vals = append(vals, addr.String())
		return true, nil
	})
	return vals, err
}

// Deposit redeems a share coin into the ledger delegation and credits the
// redeemed amount to staker. Accrued rewards are harvested first, so they go
// to the stake that earned them.
func (l *Ledger) Deposit(staker lsm.Address, funds lsm.Coins) (*big.Int, error) {
	if err := l.gate.RequireIdle(); err != nil {
		return nil, err
	}
	if _, err := l.Harvest(); err != nil {
		return nil, err
	}
	cfg, err := l.Config()
	if err != nil {
		return nil, err
	}
	share, denom, err := shares.NewValidator(cfg.Prefixes, l.known).Validate(funds, l.env.Staking())
	if err != nil {
		return nil, err
	}
	if !cfg.Variant() && denom.Validator != cfg.Validator {
		return nil, errors.Wrapf(reverts.ErrInvalidValidator, "want %s, got %s", cfg.Validator, denom.Validator)
	}
	valoper, amount, err := l.env.Staking().RedeemTokens(l.env.Self(), share)
	if err != nil {
		return nil, err
	}
	if err := decimal.CheckAmount(amount); err != nil {
		return nil, err
	}

	total, err := l.total.Get()
	if err != nil {
		return nil, err
	}
	newTotal, err := decimal.SafeAdd(total, amount)
	if err != nil {
		return nil, err
	}
	if maxCap := cfg.maxCap(); maxCap.Sign() > 0 && newTotal.Cmp(maxCap) > 0 {
		return nil, errors.Wrapf(reverts.ErrMaxCapReached, "cap %v, total would be %v", maxCap, newTotal)
	}

	acc, err := l.Settle(staker)
	if err != nil {
		return nil, err
	}
	if acc.Staked, err = decimal.SafeAdd(acc.Staked, amount); err != nil {
		return nil, err
	}
	if err := l.saveAccount(staker, acc); err != nil {
		return nil, err
	}
	if err := l.total.Set(newTotal); err != nil {
		return nil, err
	}
	if err := l.trackValidator(valoper); err != nil {
		return nil, err
	}
	logger.Debug("deposit", "staker", staker, "validator", valoper, "amount", amount)
	return amount, nil
}

// DepositRewards distributes reward funds over the current total staked.
func (l *Ledger) DepositRewards(funds lsm.Coins) (*big.Int, error) {
	cfg, err := l.Config()
	if err != nil {
		return nil, err
	}
	if len(funds) != 1 {
		return nil, errors.Wrapf(reverts.ErrWrongCoinCount, "got %d", len(funds))
	}
	if funds[0].Denom != cfg.StakingDenom {
		return nil, errors.Wrapf(reverts.ErrInvalidFunds, "want %s, got %s", cfg.StakingDenom, funds[0].Denom)
	}
	if funds[0].IsZero() {
		return nil, reverts.ErrZeroAmount
	}
	amount := new(big.Int).Set(funds[0].Amount)
	if err := l.distribute(amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// distribute raises the index by amount/total staked.
func (l *Ledger) distribute(amount *big.Int) error {
	if err := decimal.CheckAmount(amount); err != nil {
		return err
	}
	total, err := l.total.Get()
	if err != nil {
		return err
	}
	if total.Sign() == 0 {
		return reverts.ErrEmptyPool
	}
	delta, err := decimal.FromRatio(amount, total)
	if err != nil {
		return err
	}
	index, err := l.index.Get()
	if err != nil {
		return err
	}
	if index, err = index.Add(delta); err != nil {
		return err
	}
	logger.Debug("distribute rewards", "amount", amount, "total", total, "index", index)
	return l.index.Set(index)
}

// Harvest withdraws the staking rewards accrued by the ledger delegations and
// distributes them. Nothing is harvested while the pool is empty.
func (l *Ledger) Harvest() (*big.Int, error) {
	total, err := l.total.Get()
	if err != nil {
		return nil, err
	}
	harvested := new(big.Int)
	if total.Sign() == 0 {
		return harvested, nil
	}
	vals, err := l.Validators()
	if err != nil {
		return nil, err
	}
	for _, val := range vals {
		amount, err := l.env.Staking().WithdrawRewards(l.env.Self(), val)
		if err != nil {
			return nil, err
		}
		harvested.Add(harvested, amount)
	}
	if harvested.Sign() == 0 {
		return harvested, nil
	}
	return harvested, l.distribute(harvested)
}

// ClaimRewards harvests, settles and pays the pending rewards of staker.
// Nothing pending is a zero transfer.
func (l *Ledger) ClaimRewards(staker lsm.Address) (*big.Int, error) {
	cfg, err := l.Config()
	if err != nil {
		return nil, err
	}
	if _, err := l.Harvest(); err != nil {
		return nil, err
	}
	acc, err := l.Settle(staker)
	if err != nil {
		return nil, err
	}
	claimed := acc.Pending
	acc.Pending = new(big.Int)
	if claimed.Sign() == 0 {
		return claimed, nil
	}
	if err := l.accounts.Set(staker, acc); err != nil {
		return nil, err
	}
	if err := l.env.Bank().Send(l.env.Self(), staker, lsm.Coins{lsm.NewCoin(cfg.StakingDenom, claimed)}); err != nil {
		return nil, err
	}
	logger.Debug("claim rewards", "staker", staker, "amount", claimed)
	return claimed, nil
}

// WithdrawMode selects how withdrawn stake leaves the ledger.
type WithdrawMode string

const (
	// WithdrawTokenize sends the staker a share of the withdrawn amount.
	WithdrawTokenize WithdrawMode = "tokenize"
	// WithdrawUndelegate queues the amount for unbonding to the staker.
	WithdrawUndelegate WithdrawMode = "undelegate"
)

// ParseWithdrawMode parses a mode, defaulting to tokenize.
func ParseWithdrawMode(s string) (WithdrawMode, error) {
	switch WithdrawMode(s) {
	case "", WithdrawTokenize:
		return WithdrawTokenize, nil
	case WithdrawUndelegate:
		return WithdrawUndelegate, nil
	}
	return "", errors.Wrapf(reverts.ErrInvalidMessage, "unknown withdraw mode %q", s)
}

// Withdraw harvests, then debits amount from staker and releases it from the
// delegation to validator. In tokenize mode the returned coin is the share sent to staker.
func (l *Ledger) Withdraw(staker lsm.Address, amount *big.Int, validator string, mode WithdrawMode) (*lsm.Coin, error) {
	if err := l.gate.RequireIdle(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, reverts.ErrZeroAmount
	}
	cfg, err := l.Config()
	if err != nil {
		return nil, err
	}
	valoper, err := cfg.resolveValidator(validator)
	if err != nil {
		return nil, err
	}
	if _, err := l.Harvest(); err != nil {
		return nil, err
	}
	acc, err := l.Settle(staker)
	if err != nil {
		return nil, err
	}
	if acc.Staked.Cmp(amount) < 0 {
		return nil, errors.Wrapf(reverts.ErrInsufficientBalance, "staked %v, requested %v", acc.Staked, amount)
	}
	acc.Staked = new(big.Int).Sub(acc.Staked, amount)
	if err := l.accounts.Set(staker, acc); err != nil {
		return nil, err
	}
	if err := l.subTotal(amount); err != nil {
		return nil, err
	}

	staking := l.env.Staking()
	switch mode {
	case WithdrawUndelegate:
		if err := staking.Undelegate(l.env.Self(), valoper, amount, staker); err != nil {
			return nil, err
		}
		logger.Debug("withdraw", "staker", staker, "validator", valoper, "amount", amount, "mode", mode)
		return nil, nil
	default:
		share, err := staking.TokenizeShares(l.env.Self(), valoper, amount, staker)
		if err != nil {
			return nil, err
		}
		logger.Debug("withdraw", "staker", staker, "validator", valoper, "amount", amount, "mode", mode)
		return &share, nil
	}
}
