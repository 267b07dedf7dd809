// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package locker implements the option locker: a single depositor ledger
// holding stake rented to one vote option of one proposal. A locker votes
// exactly once, when it is created.
package locker

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

var logger = log.WithContext("pkg", "locker")

var (
	slotConfig    = lsm.BytesToBytes32([]byte("config"))
	slotStaked    = lsm.BytesToBytes32([]byte("staked"))
	slotVoted     = lsm.BytesToBytes32([]byte("voted"))
	slotDestroyed = lsm.BytesToBytes32([]byte("destroyed"))
	slotValHead   = lsm.BytesToBytes32([]byte("validators-head"))
	slotValTail   = lsm.BytesToBytes32([]byte("validators-tail"))
	slotValCount  = lsm.BytesToBytes32([]byte("validators-count"))
)

var _ runtime.Code = (*Code)(nil)

// Code is the locker contract code.
type Code struct {
	known *cache.LRU[string, bool]
}

// New creates the locker code. known caches validator lookups and may be nil.
func New(known *cache.LRU[string, bool]) *Code {
	return &Code{known: known}
}

type store struct {
	config     *solidity.Raw[*Config]
	staked     *solidity.Uint256
	voted      *solidity.Raw[bool]
	destroyed  *solidity.Raw[bool]
	validators *linkedlist.LinkedList
}

func newStore(env *runtime.Env) *store {
	sctx := solidity.NewContext(env.Self(), env.State())
	return &store{
		config:     solidity.NewRaw[*Config](sctx, slotConfig),
		staked:     solidity.NewUint256(sctx, slotStaked),
		voted:      solidity.NewRaw[bool](sctx, slotVoted),
		destroyed:  solidity.NewRaw[bool](sctx, slotDestroyed),
		validators: linkedlist.New(sctx, slotValHead, slotValTail, slotValCount),
	}
}

func (s *store) loadConfig() (*Config, error) {
	cfg, err := s.config.Get()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errors.New("locker: not initialized")
	}
	return cfg, nil
}

func (s *store) requireAlive() error {
	destroyed, err := s.destroyed.Get()
	if err != nil {
		return err
	}
	if destroyed {
		return reverts.ErrDestroyed
	}
	return nil
}

// Instantiate records the configuration and casts the locker's only vote.
func (c *Code) Instantiate(env *runtime.Env, info runtime.MessageInfo, msg any) (*runtime.Response, error) {
	m, err := runtime.DecodeMsg[InstantiateMsg](msg)
	if err != nil {
		return nil, err
	}
	if !m.Option.Valid() {
		return nil, errors.Wrapf(reverts.ErrUnknownVoteOption, "%d", m.Option)
	}
	if m.Validator != "" {
		if !lsm.IsValidatorAddress(m.Validator, shares.NewValidator(m.Prefixes, nil).Prefixes()) {
			return nil, errors.Wrapf(reverts.ErrInvalidValidatorPrefix, "%q", m.Validator)
		}
		exists, err := env.Staking().ValidatorExists(m.Validator)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, errors.Wrapf(reverts.ErrValidatorNotFound, "%s", m.Validator)
		}
	}
	status, found, err := env.Gov().ProposalStatus(m.ProposalID)
	if err != nil {
		return nil, err
	}
	if !found || status != lsm.StatusVotingPeriod {
		return nil, errors.Wrapf(reverts.ErrProposalNotInVoting, "proposal %d", m.ProposalID)
	}

	s := newStore(env)
	cfg := &Config{
		Owner:      info.Sender,
		ProposalID: m.ProposalID,
		Option:     m.Option,
		Validator:  m.Validator,
		Prefixes:   m.Prefixes,
	}
	if err := s.config.Set(cfg); err != nil {
		return nil, err
	}
	if err := env.Gov().Vote(env.Self(), m.ProposalID, m.Option); err != nil {
		return nil, err
	}
	if err := s.voted.Set(true); err != nil {
		return nil, err
	}
	logger.Debug("locker voted", "locker", env.Self(), "proposal", m.ProposalID, "option", m.Option)

	return runtime.NewResponse().
		AddEvent(runtime.NewEvent("vote").
			Add("proposal_id", m.ProposalID).
			Add("option", m.Option).
			Add("owner", info.Sender)), nil
}

// Execute handles ReceiveShares and Destroy.
func (c *Code) Execute(env *runtime.Env, info runtime.MessageInfo, msg any) (*runtime.Response, error) {
	m, err := runtime.DecodeMsg[ExecuteMsg](msg)
	if err != nil {
		return nil, err
	}
	switch {
	case m.ReceiveShares != nil:
		return c.receiveShares(env, info)
	case m.Destroy != nil:
		return c.destroy(env, info)
	}
	return nil, errors.Wrap(reverts.ErrInvalidMessage, "empty locker message")
}

func (c *Code) receiveShares(env *runtime.Env, info runtime.MessageInfo) (*runtime.Response, error) {
	s := newStore(env)
	if err := s.requireAlive(); err != nil {
		return nil, err
	}
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}
	share, denom, err := shares.NewValidator(cfg.Prefixes, c.known).Validate(info.Funds, env.Staking())
	if err != nil {
		return nil, err
	}
	if cfg.Validator != "" && denom.Validator != cfg.Validator {
		return nil, errors.Wrapf(reverts.ErrInvalidValidator, "want %s, got %s", cfg.Validator, denom.Validator)
	}
	valoper, amount, err := env.Staking().RedeemTokens(env.Self(), share)
	if err != nil {
		return nil, err
	}
	staked, err := s.staked.Get()
	if err != nil {
		return nil, err
	}
	if staked, err = decimal.SafeAdd(staked, amount); err != nil {
		return nil, err
	}
	if err := s.staked.Set(staked); err != nil {
		return nil, err
	}
	known, err := s.validators.Contains(lsm.Address(valoper))
	if err != nil {
		return nil, err
	}
	if !known {
		if err := s.validators.Add(lsm.Address(valoper)); err != nil {
			return nil, err
		}
	}
	return runtime.NewResponse().
		AddEvent(runtime.NewEvent("receive_shares").
			Add("sender", info.Sender).
			Add("validator", valoper).
			Add("amount", amount)), nil
}

func (c *Code) destroy(env *runtime.Env, info runtime.MessageInfo) (*runtime.Response, error) {
	s := newStore(env)
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}
	if info.Sender != cfg.Owner {
		return nil, errors.Wrapf(reverts.ErrNotOwningLedger, "%s", info.Sender)
	}
	if err := s.requireAlive(); err != nil {
		return nil, err
	}

	var (
		staking = env.Staking()
		reply   = &DestroyReply{Option: cfg.Option, Principal: new(big.Int), Rewards: new(big.Int)}
	)
	err = s.validators.Iter(func(val lsm.Address) (bool, error) {
		rewards, err := staking.WithdrawRewards(env.Self(), val.String())
		if err != nil {
			return false, err
		}
		reply.Rewards.Add(reply.Rewards, rewards)

		delegated, err := staking.Delegation(env.Self(), val.String())
		if err != nil {
			return false, err
		}
		if delegated.Sign() == 0 {
			return true, nil
		}
		share, err := staking.TokenizeShares(env.Self(), val.String(), delegated, env.Self())
		if err != nil {
			return false, err
		}
		reply.Principal.Add(reply.Principal, delegated)
		reply.Shares = append(reply.Shares, share)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	funds := append(lsm.Coins{lsm.NewCoin(staking.BondDenom(), reply.Rewards)}, reply.Shares...)
	if err := env.Bank().Send(env.Self(), cfg.Owner, funds); err != nil {
		return nil, err
	}
	if err := s.staked.Set(new(big.Int)); err != nil {
		return nil, err
	}
	if err := s.destroyed.Set(true); err != nil {
		return nil, err
	}
	logger.Debug("locker destroyed", "locker", env.Self(), "principal", reply.Principal, "rewards", reply.Rewards)

	return runtime.NewResponse().
		WithData(reply).
		AddEvent(runtime.NewEvent("destroy").
			Add("option", cfg.Option).
			Add("principal", reply.Principal).
			Add("rewards", reply.Rewards)), nil
}

// Query answers Config and TotalVotingPower.
func (c *Code) Query(env *runtime.Env, msg any) (any, error) {
	m, err := runtime.DecodeMsg[QueryMsg](msg)
	if err != nil {
		return nil, err
	}
	s := newStore(env)
	switch {
	case m.Config != nil:
		cfg, err := s.loadConfig()
		if err != nil {
			return nil, err
		}
		voted, err := s.voted.Get()
		if err != nil {
			return nil, err
		}
		destroyed, err := s.destroyed.Get()
		if err != nil {
			return nil, err
		}
		return &ConfigResponse{Config: *cfg, Voted: voted, Destroyed: destroyed}, nil
	case m.TotalVotingPower != nil:
		staked, err := s.staked.Get()
		if err != nil {
			return nil, err
		}
		return &VotingPowerResponse{Amount: lsm.NewAmount(staked)}, nil
	}
	return nil, errors.Wrap(reverts.ErrInvalidMessage, "empty locker query")
}
