// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package pool implements the primary pool contract: the message surface over
// the ledger and the proposal orchestrator.
package pool

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/builtin/ledger"
	"github.com/lsmpool/lsmpool/builtin/proposal"
	"github.com/lsmpool/lsmpool/builtin/reverts"
	"github.com/lsmpool/lsmpool/builtin/shares"
	"github.com/lsmpool/lsmpool/cache"
	"github.com/lsmpool/lsmpool/log"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/metrics"
	"github.com/lsmpool/lsmpool/runtime"
)

var logger = log.WithContext("pkg", "pool")

var (
	metricMessages    = metrics.LazyLoadCounterVec("pool_messages_count", []string{"message"})
	metricTotalStaked = metrics.LazyLoadGaugeVec("pool_total_staked", []string{"pool"})
)

var _ runtime.Code = (*Code)(nil)

// Code is the pool contract code.
type Code struct {
	known *cache.LRU[string, bool]
}

// New creates the pool code. known caches validator lookups and may be nil.
func New(known *cache.LRU[string, bool]) *Code {
	return &Code{known: known}
}

type contract struct {
	env    *runtime.Env
	ledger *ledger.Ledger
	orch   *proposal.Orchestrator
}

func (c *Code) bind(env *runtime.Env) *contract {
	orch := proposal.New(env)
	return &contract{env: env, ledger: ledger.New(env, orch, c.known), orch: orch}
}

// Instantiate stores the pool configuration.
func (c *Code) Instantiate(env *runtime.Env, info runtime.MessageInfo, msg any) (*runtime.Response, error) {
	m, err := runtime.DecodeMsg[InstantiateMsg](msg)
	if err != nil {
		return nil, err
	}
	cfg := &ledger.Config{
		Owner:        m.Owner,
		StakingDenom: m.StakingDenom,
		Validator:    m.Validator,
		Prefixes:     m.Prefixes,
	}
	if cfg.Owner.IsZero() {
		cfg.Owner = info.Sender
	}
	if cfg.StakingDenom == "" {
		cfg.StakingDenom = env.Staking().BondDenom()
	}
	if len(cfg.Prefixes) == 0 {
		cfg.Prefixes = shares.DefaultPrefixes
	}
	if m.MaxCap != nil {
		cfg.MaxCap = m.MaxCap.Big()
	}
	if err := c.bind(env).ledger.Init(cfg); err != nil {
		return nil, err
	}
	logger.Info("pool created", "pool", env.Self(), "owner", cfg.Owner, "validator", cfg.Validator)
	return runtime.NewResponse().
		AddEvent(runtime.NewEvent("pool_created").
			Add("owner", cfg.Owner).
			Add("staking_denom", cfg.StakingDenom).
			Add("validator", cfg.Validator)), nil
}

// Execute dispatches one pool message.
func (c *Code) Execute(env *runtime.Env, info runtime.MessageInfo, msg any) (*runtime.Response, error) {
	m, err := runtime.DecodeMsg[ExecuteMsg](msg)
	if err != nil {
		return nil, err
	}
	p := c.bind(env)

	var (
		name string
		res  *runtime.Response
	)
	switch {
	case m.Deposit != nil:
		name = "deposit"
		res, err = p.deposit(info)
	case m.DepositRewards != nil:
		name = "deposit_rewards"
		res, err = p.depositRewards(info)
	case m.ClaimRewards != nil:
		name = "claim_rewards"
		res, err = p.claimRewards(info)
	case m.Withdraw != nil:
		name = "withdraw"
		res, err = p.withdraw(info, m.Withdraw)
	case m.OpenProposal != nil:
		name = "open_proposal"
		res, err = p.openProposal(info, m.OpenProposal)
	case m.RentVotingPower != nil:
		name = "rent_voting_power"
		res, err = p.rent(info, m.RentVotingPower)
	case m.CloseProposal != nil:
		name = "close_proposal"
		res, err = p.closeProposal(info)
	case m.UpdateConfig != nil:
		name = "update_config"
		res, err = p.updateConfig(info, m.UpdateConfig)
	default:
		return nil, errors.Wrap(reverts.ErrInvalidMessage, "empty pool message")
	}
	if err != nil {
		logger.Debug("pool message rejected", "message", name, "sender", info.Sender, "error", err)
		return nil, err
	}
	metricMessages().AddWithLabel(1, map[string]string{"message": name})
	if total, err := p.ledger.TotalStaked(); err == nil && total.IsInt64() {
		metricTotalStaked().SetWithLabel(total.Int64(), map[string]string{"pool": env.Self().String()})
	}
	return res, nil
}

func action(name string, sender lsm.Address) *runtime.Event {
	return runtime.NewEvent("wasm").Add("method", name).Add("sender", sender)
}

func (p *contract) deposit(info runtime.MessageInfo) (*runtime.Response, error) {
	amount, err := p.ledger.Deposit(info.Sender, info.Funds)
	if err != nil {
		return nil, err
	}
	return runtime.NewResponse().
		AddEvent(action("deposit", info.Sender).Add("amount", amount)).
		WithData(lsm.NewAmount(amount)), nil
}

func (p *contract) depositRewards(info runtime.MessageInfo) (*runtime.Response, error) {
	amount, err := p.ledger.DepositRewards(info.Funds)
	if err != nil {
		return nil, err
	}
	index, err := p.ledger.Index()
	if err != nil {
		return nil, err
	}
	return runtime.NewResponse().
		AddEvent(action("deposit_rewards", info.Sender).Add("amount", amount).Add("reward_index", index)), nil
}

func (p *contract) claimRewards(info runtime.MessageInfo) (*runtime.Response, error) {
	claimed, err := p.ledger.ClaimRewards(info.Sender)
	if err != nil {
		return nil, err
	}
	return runtime.NewResponse().
		AddEvent(action("claim_rewards", info.Sender).Add("amount", claimed)).
		WithData(lsm.NewAmount(claimed)), nil
}

func (p *contract) withdraw(info runtime.MessageInfo, m *WithdrawMsg) (*runtime.Response, error) {
	mode, err := ledger.ParseWithdrawMode(m.Mode)
	if err != nil {
		return nil, err
	}
	amount := m.Amount.Big()
	share, err := p.ledger.Withdraw(info.Sender, amount, m.Validator, mode)
	if err != nil {
		return nil, err
	}
	ev := action("withdraw", info.Sender).Add("amount", amount).Add("mode", mode)
	if share != nil {
		ev.Add("share", share.Denom)
	}
	return runtime.NewResponse().AddEvent(ev).WithData(&WithdrawResponse{Share: share}), nil
}

func (p *contract) openProposal(info runtime.MessageInfo, m *OpenProposalMsg) (*runtime.Response, error) {
	rec, err := p.orch.Open(p.ledger, info.Sender, m.ProposalID, m.CodeID)
	if err != nil {
		return nil, err
	}
	ev := action("open_proposal", info.Sender).
		Add("proposal_id", m.ProposalID).
		Add("code_id", m.CodeID)
	for _, ref := range rec.Lockers {
		ev.Add("locker_"+ref.Option.String(), ref.Address)
	}
	return runtime.NewResponse().AddEvent(ev), nil
}

func (p *contract) rent(info runtime.MessageInfo, m *RentMsg) (*runtime.Response, error) {
	amount := m.Amount.Big()
	if err := p.ledger.Rent(info.Sender, amount, m.Option); err != nil {
		return nil, err
	}
	return runtime.NewResponse().
		AddEvent(action("rent_voting_power", info.Sender).Add("amount", amount).Add("option", m.Option)), nil
}

func (p *contract) closeProposal(info runtime.MessageInfo) (*runtime.Response, error) {
	result, err := p.orch.Close(p.ledger, info.Sender)
	if err != nil {
		return nil, err
	}
	res := runtime.NewResponse().
		AddEvent(action("close_proposal", info.Sender).
			Add("proposal_id", result.ProposalID).
			Add("principal", result.Principal).
			Add("rewards", result.Rewards))
	for _, r := range result.Restored {
		res.AddEvent(runtime.NewEvent("restore").Add("staker", r.Staker).Add("amount", r.Amount))
	}
	return res, nil
}

func (p *contract) updateConfig(info runtime.MessageInfo, m *UpdateConfigMsg) (*runtime.Response, error) {
	var maxCap *big.Int
	if m.MaxCap != nil {
		maxCap = m.MaxCap.Big()
	}
	cfg, err := p.ledger.UpdateConfig(info.Sender, m.Owner, maxCap)
	if err != nil {
		return nil, err
	}
	return runtime.NewResponse().
		AddEvent(action("update_config", info.Sender).Add("owner", cfg.Owner).Add("max_cap", lsm.NewAmount(cfg.MaxCap))), nil
}

// Query answers the read only pool queries.
func (c *Code) Query(env *runtime.Env, msg any) (any, error) {
	m, err := runtime.DecodeMsg[QueryMsg](msg)
	if err != nil {
		return nil, err
	}
	p := c.bind(env)
	switch {
	case m.Config != nil:
		cfg, err := p.ledger.Config()
		if err != nil {
			return nil, err
		}
		return &ConfigResponse{
			Owner:        cfg.Owner,
			StakingDenom: cfg.StakingDenom,
			Validator:    cfg.Validator,
			MaxCap:       lsm.NewAmount(cfg.MaxCap),
			Prefixes:     cfg.Prefixes,
		}, nil
	case m.StakerInfo != nil:
		return p.ledger.StakerInfo(m.StakerInfo.Address)
	case m.TotalStaked != nil:
		total, err := p.ledger.TotalStaked()
		if err != nil {
			return nil, err
		}
		unassigned, err := p.ledger.Unassigned()
		if err != nil {
			return nil, err
		}
		return &TotalStakedResponse{TotalStaked: lsm.NewAmount(total), Unassigned: lsm.NewAmount(unassigned)}, nil
	case m.RewardIndex != nil:
		index, err := p.ledger.Index()
		if err != nil {
			return nil, err
		}
		return &RewardIndexResponse{RewardIndex: index}, nil
	case m.Stakers != nil:
		infos, err := p.ledger.Stakers(m.Stakers.StartAfter, m.Stakers.Limit)
		if err != nil {
			return nil, err
		}
		return &StakersResponse{Stakers: infos}, nil
	case m.Proposal != nil:
		rec, err := p.orch.Record()
		if err != nil {
			return nil, err
		}
		lockers := rec.Lockers
		if lockers == nil {
			lockers = []proposal.LockerRef{}
		}
		return &ProposalResponse{Phase: rec.Phase.String(), Round: rec.Round, ProposalID: rec.ProposalID, Lockers: lockers}, nil
	}
	return nil, errors.Wrap(reverts.ErrInvalidMessage, "empty pool query")
}
