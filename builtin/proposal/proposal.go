// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package proposal drives the proposal lifecycle of the pool:
// Idle -> Opening -> Active -> Closing -> Idle.
package proposal

import (
	"fmt"
	"math/big"

	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/builtin/ledger"
	"github.com/lsmpool/lsmpool/builtin/locker"
	"github.com/lsmpool/lsmpool/builtin/registry"
	"github.com/lsmpool/lsmpool/builtin/reverts"
	"github.com/lsmpool/lsmpool/builtin/solidity"
	"github.com/lsmpool/lsmpool/log"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/runtime"
)

var logger = log.WithContext("pkg", "proposal")

var slotRecord = lsm.BytesToBytes32([]byte("proposal"))

var _ ledger.Gate = (*Orchestrator)(nil)

// Orchestrator is the proposal state machine of the running pool contract.
type Orchestrator struct {
	env    *runtime.Env
	record *solidity.Raw[*Record]
}

// New binds an orchestrator to the running contract.
func New(env *runtime.Env) *Orchestrator {
	return &Orchestrator{
		env:    env,
		record: solidity.NewRaw[*Record](solidity.NewContext(env.Self(), env.State()), slotRecord),
	}
}

// Record returns the current proposal state.
func (o *Orchestrator) Record() (*Record, error) {
	rec, err := o.record.Get()
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &Record{Phase: PhaseIdle}, nil
	}
	return rec, nil
}

func (o *Orchestrator) require(phase Phase) (*Record, error) {
	rec, err := o.Record()
	if err != nil {
		return nil, err
	}
	if rec.Phase != phase {
		return nil, errors.Wrapf(reverts.ErrWrongProposalState, "want %s, is %s", phase, rec.Phase)
	}
	return rec, nil
}

// RequireIdle implements ledger.Gate.
func (o *Orchestrator) RequireIdle() error {
	_, err := o.require(PhaseIdle)
	return err
}

// ActiveLocker implements ledger.Gate.
func (o *Orchestrator) ActiveLocker(option lsm.VoteOption) (uint64, lsm.Address, error) {
	rec, err := o.require(PhaseActive)
	if err != nil {
		return 0, "", err
	}
	addr := rec.Locker(option)
	if addr.IsZero() {
		return 0, "", errors.Wrapf(reverts.ErrUnknownVoteOption, "%s", option)
	}
	return rec.Round, addr, nil
}

// Round implements ledger.Gate.
func (o *Orchestrator) Round() (uint64, bool, error) {
	rec, err := o.Record()
	if err != nil {
		return 0, false, err
	}
	return rec.Round, rec.Phase != PhaseIdle, nil
}

// Open creates one locker per vote option for proposalID from codeID. Every
// locker votes for its option while being created. The pool is Active on return.
func (o *Orchestrator) Open(l *ledger.Ledger, sender lsm.Address, proposalID, codeID uint64) (*Record, error) {
	if err := l.RequireOwner(sender); err != nil {
		return nil, err
	}
	prev, err := o.require(PhaseIdle)
	if err != nil {
		return nil, err
	}
	cfg, err := l.Config()
	if err != nil {
		return nil, err
	}

	rec := &Record{Phase: PhaseOpening, Round: prev.Round + 1, ProposalID: proposalID, CodeID: codeID}
	if err := o.record.Set(rec); err != nil {
		return nil, err
	}

	batch := registry.New("open")
	msgs := batch.Issue(func(option lsm.VoteOption) runtime.SubMsg {
		return runtime.SubMsg{Instantiate: &runtime.InstantiateMsg{
			CodeID: codeID,
			Label:  fmt.Sprintf("locker-%d-%s", proposalID, option),
			Msg: &locker.InstantiateMsg{
				ProposalID: proposalID,
				Option:     option,
				Validator:  cfg.Validator,
				Prefixes:   cfg.Prefixes,
			},
		}}
	})
	replies, err := o.env.Dispatch(msgs...)
	if err != nil {
		return nil, reverts.WithCause(reverts.ErrCreationFailed, err)
	}
	for _, reply := range replies {
		option, err := batch.Confirm(reply)
		if err != nil {
			return nil, err
		}
		rec.Confirmed = append(rec.Confirmed, option)
		rec.Lockers = append(rec.Lockers, LockerRef{Option: option, Address: reply.Address})
		if err := o.record.Set(rec); err != nil {
			return nil, err
		}
	}
	if !batch.Complete() {
		return nil, errors.Wrapf(reverts.ErrCreationFailed, "confirmed %v", batch.Confirmed())
	}

	rec.Phase = PhaseActive
	rec.Confirmed = nil
	if err := o.record.Set(rec); err != nil {
		return nil, err
	}
	logger.Info("proposal opened", "proposal", proposalID, "round", rec.Round, "code", codeID)
	return rec, nil
}

// CloseResult is the outcome of closing a proposal.
type CloseResult struct {
	ProposalID uint64
	Principal  *big.Int
	Rewards    *big.Int
	Restored   []ledger.Restored
}

// Close destroys the lockers of the active proposal, restores the recovered
// principal to the renters and distributes the recovered rewards. The
// substrate proposal must no longer be in its deposit or voting period.
func (o *Orchestrator) Close(l *ledger.Ledger, sender lsm.Address) (*CloseResult, error) {
	if err := l.RequireOwner(sender); err != nil {
		return nil, err
	}
	rec, err := o.require(PhaseActive)
	if err != nil {
		return nil, err
	}
	status, found, err := o.env.Gov().ProposalStatus(rec.ProposalID)
	if err != nil {
		return nil, err
	}
	if found && !status.Finished() {
		return nil, errors.Wrapf(reverts.ErrProposalStillActive, "proposal %d is %s", rec.ProposalID, status)
	}
	// restored principal joins the total below
	if _, err := l.Harvest(); err != nil {
		return nil, err
	}

	rec.Phase = PhaseClosing
	rec.Confirmed = nil
	rec.RecoveredPrincipal = new(big.Int)
	rec.RecoveredRewards = new(big.Int)
	if err := o.record.Set(rec); err != nil {
		return nil, err
	}

	batch := registry.New("close")
	msgs := batch.Issue(func(option lsm.VoteOption) runtime.SubMsg {
		return runtime.SubMsg{Execute: &runtime.ExecuteMsg{
			Contract: rec.Locker(option),
			Msg:      &locker.ExecuteMsg{Destroy: &struct{}{}},
		}}
	})
	replies, err := o.env.Dispatch(msgs...)
	if err != nil {
		return nil, reverts.WithCause(reverts.ErrTeardownFailed, err)
	}

	result := &CloseResult{ProposalID: rec.ProposalID}
	for _, reply := range replies {
		option, err := batch.Confirm(reply)
		if err != nil {
			return nil, err
		}
		var data *locker.DestroyReply
		if reply.Response != nil {
			data, _ = reply.Response.Data.(*locker.DestroyReply)
		}
		if data == nil || data.Option != option {
			return nil, errors.Wrapf(reverts.ErrTeardownFailed, "malformed reply for %s", option)
		}
		principal, err := o.redeem(l, data.Shares)
		if err != nil {
			return nil, err
		}
		restored, err := l.RestoreRented(rec.Round, option, principal)
		if err != nil {
			return nil, err
		}
		result.Restored = append(result.Restored, restored...)

		rec.Confirmed = append(rec.Confirmed, option)
		rec.RecoveredPrincipal.Add(rec.RecoveredPrincipal, principal)
		if data.Rewards != nil {
			rec.RecoveredRewards.Add(rec.RecoveredRewards, data.Rewards)
		}
		if err := o.record.Set(rec); err != nil {
			return nil, err
		}
	}
	if !batch.Complete() {
		return nil, errors.Wrapf(reverts.ErrTeardownFailed, "confirmed %v", batch.Confirmed())
	}

	if err := l.DistributeRecovered(rec.RecoveredRewards); err != nil {
		return nil, err
	}
	result.Principal = rec.RecoveredPrincipal
	result.Rewards = rec.RecoveredRewards
	if err := o.record.Set(rec.idle()); err != nil {
		return nil, err
	}
	logger.Info("proposal closed", "proposal", rec.ProposalID, "round", rec.Round,
		"principal", result.Principal, "rewards", result.Rewards)
	return result, nil
}

// redeem turns the shares flushed by a locker back into ledger delegations.
func (o *Orchestrator) redeem(l *ledger.Ledger, shares lsm.Coins) (*big.Int, error) {
	principal := new(big.Int)
	for _, share := range shares {
		valoper, amount, err := o.env.Staking().RedeemTokens(o.env.Self(), share)
		if err != nil {
			return nil, err
		}
		if err := l.TrackValidator(valoper); err != nil {
			return nil, err
		}
		principal.Add(principal, amount)
	}
	return principal, nil
}
