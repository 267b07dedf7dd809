// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package substrate

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/builtin/reverts"
	"github.com/lsmpool/lsmpool/builtin/solidity"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/state"
)

// Address is the storage owner of the simulated modules.
const Address = lsm.Address("substrate")

var (
	slotBalances    = lsm.BytesToBytes32([]byte("bank-balances"))
	slotSupply      = lsm.BytesToBytes32([]byte("bank-supply"))
	slotValidators  = lsm.BytesToBytes32([]byte("staking-validators"))
	slotDelegations = lsm.BytesToBytes32([]byte("staking-delegations"))
	slotRewards     = lsm.BytesToBytes32([]byte("staking-rewards"))
	slotUnbonding   = lsm.BytesToBytes32([]byte("staking-unbonding"))
	slotRecordSeq   = lsm.BytesToBytes32([]byte("lsm-record-seq"))
	slotRecords     = lsm.BytesToBytes32([]byte("lsm-records"))
	slotProposals   = lsm.BytesToBytes32([]byte("gov-proposals"))
	slotVotes       = lsm.BytesToBytes32([]byte("gov-votes"))
)

type key string

func (k key) Bytes() []byte { return []byte(k) }

func pair(a, b string) key { return key(a + "|" + b) }

func proposalKey(id uint64) key { return key(strconv.FormatUint(id, 10)) }

// ShareRecord is a tokenized delegation backing a share denom.
type ShareRecord struct {
	Validator string
	RecordID  uint64
}

// Denom returns the share denom of the record.
func (r *ShareRecord) Denom() string {
	return fmt.Sprintf("%s/%d", r.Validator, r.RecordID)
}

// Proposal is a governance proposal.
type Proposal struct {
	Status uint8
	Votes  uint64
}

var (
	_ Bank    = (*Simulated)(nil)
	_ Staking = (*Simulated)(nil)
	_ Gov     = (*Simulated)(nil)
)

// Simulated implements bank, staking and gov on top of state, so every
// effect is reverted together with the request that caused it.
type Simulated struct {
	bondDenom string

	balances    *solidity.Mapping[key, *big.Int]
	supply      *solidity.Mapping[key, *big.Int]
	validators  *solidity.Mapping[key, bool]
	delegations *solidity.Mapping[key, *big.Int]
	rewards     *solidity.Mapping[key, *big.Int]
	unbonding   *solidity.Mapping[key, *big.Int]
	recordSeq   *solidity.Uint256
	records     *solidity.Mapping[key, *ShareRecord]
	proposals   *solidity.Mapping[key, *Proposal]
	votes       *solidity.Mapping[key, lsm.VoteOption]
}

// NewSimulated binds the simulated modules to state.
func NewSimulated(st *state.State, bondDenom string) *Simulated {
	sctx := solidity.NewContext(Address, st)
	return &Simulated{
		bondDenom:   bondDenom,
		balances:    solidity.NewMapping[key, *big.Int](sctx, slotBalances),
		supply:      solidity.NewMapping[key, *big.Int](sctx, slotSupply),
		validators:  solidity.NewMapping[key, bool](sctx, slotValidators),
		delegations: solidity.NewMapping[key, *big.Int](sctx, slotDelegations),
		rewards:     solidity.NewMapping[key, *big.Int](sctx, slotRewards),
		unbonding:   solidity.NewMapping[key, *big.Int](sctx, slotUnbonding),
		recordSeq:   solidity.NewUint256(sctx, slotRecordSeq),
		records:     solidity.NewMapping[key, *ShareRecord](sctx, slotRecords),
		proposals:   solidity.NewMapping[key, *Proposal](sctx, slotProposals),
		votes:       solidity.NewMapping[key, lsm.VoteOption](sctx, slotVotes),
	}
}

func getAmount(m *solidity.Mapping[key, *big.Int], k key) (*big.Int, error) {
	v, err := m.Get(k)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return new(big.Int), nil
	}
	return v, nil
}

func setAmount(m *solidity.Mapping[key, *big.Int], k key, v *big.Int) error {
	if v.Sign() == 0 {
		return m.Set(k, nil)
	}
	return m.Set(k, v)
}

func addAmount(m *solidity.Mapping[key, *big.Int], k key, delta *big.Int) error {
	cur, err := getAmount(m, k)
	if err != nil {
		return err
	}
	return setAmount(m, k, cur.Add(cur, delta))
}

func subAmount(m *solidity.Mapping[key, *big.Int], k key, delta *big.Int, what string) error {
	cur, err := getAmount(m, k)
	if err != nil {
		return err
	}
	if cur.Cmp(delta) < 0 {
		return errors.Wrapf(reverts.ErrSubstrate, "insufficient %s: have %v, need %v", what, cur, delta)
	}
	return setAmount(m, k, cur.Sub(cur, delta))
}

//
// Bank
//

// Balance returns the balance of denom held by addr.
func (s *Simulated) Balance(addr lsm.Address, denom string) (*big.Int, error) {
	return getAmount(s.balances, pair(addr.String(), denom))
}

// Send moves coins from one account to another.
func (s *Simulated) Send(from, to lsm.Address, coins lsm.Coins) error {
	for _, c := range coins.NonZero() {
		if c.Amount.Sign() < 0 {
			return errors.Wrapf(reverts.ErrSubstrate, "negative amount %v", c)
		}
		if err := subAmount(s.balances, pair(from.String(), c.Denom), c.Amount, "funds of "+from.String()); err != nil {
			return err
		}
		if err := addAmount(s.balances, pair(to.String(), c.Denom), c.Amount); err != nil {
			return err
		}
	}
	return nil
}

// Mint creates coins out of thin air.
func (s *Simulated) Mint(to lsm.Address, coin lsm.Coin) error {
	if err := addAmount(s.supply, key(coin.Denom), coin.Amount); err != nil {
		return err
	}
	return addAmount(s.balances, pair(to.String(), coin.Denom), coin.Amount)
}

func (s *Simulated) burn(from lsm.Address, coin lsm.Coin) error {
	if err := subAmount(s.balances, pair(from.String(), coin.Denom), coin.Amount, "funds of "+from.String()); err != nil {
		return err
	}
	return subAmount(s.supply, key(coin.Denom), coin.Amount, "supply")
}

// Supply returns the total supply of denom.
func (s *Simulated) Supply(denom string) (*big.Int, error) {
	return getAmount(s.supply, key(denom))
}

//
// Staking
//

func (s *Simulated) BondDenom() string {
	return s.bondDenom
}

// AddValidator registers a validator.
func (s *Simulated) AddValidator(valoper string) error {
	return s.validators.Set(key(valoper), true)
}

func (s *Simulated) ValidatorExists(valoper string) (bool, error) {
	return s.validators.Get(key(valoper))
}

func (s *Simulated) Delegation(delegator lsm.Address, valoper string) (*big.Int, error) {
	return getAmount(s.delegations, pair(delegator.String(), valoper))
}

// Delegate bonds amount of the delegator's bond denom balance to valoper.
func (s *Simulated) Delegate(delegator lsm.Address, valoper string, amount *big.Int) error {
	exists, err := s.ValidatorExists(valoper)
	if err != nil {
		return err
	}
	if !exists {
		return errors.Wrap(reverts.ErrValidatorNotFound, valoper)
	}
	if err := s.burn(delegator, lsm.NewCoin(s.bondDenom, amount)); err != nil {
		return err
	}
	return addAmount(s.delegations, pair(delegator.String(), valoper), amount)
}

func (s *Simulated) TokenizeShares(delegator lsm.Address, valoper string, amount *big.Int, owner lsm.Address) (lsm.Coin, error) {
	if amount.Sign() <= 0 {
		return lsm.Coin{}, errors.Wrap(reverts.ErrSubstrate, "tokenize zero amount")
	}
	if err := subAmount(s.delegations, pair(delegator.String(), valoper), amount, "delegation"); err != nil {
		return lsm.Coin{}, err
	}
	seq, err := s.recordSeq.Get()
	if err != nil {
		return lsm.Coin{}, err
	}
	seq.Add(seq, big.NewInt(1))
	if err := s.recordSeq.Set(seq); err != nil {
		return lsm.Coin{}, err
	}
	record := &ShareRecord{Validator: valoper, RecordID: seq.Uint64()}
	if err := s.records.Set(key(record.Denom()), record); err != nil {
		return lsm.Coin{}, err
	}
	share := lsm.NewCoin(record.Denom(), amount)
	if err := s.Mint(owner, share); err != nil {
		return lsm.Coin{}, err
	}
	return share, nil
}

func (s *Simulated) RedeemTokens(holder lsm.Address, share lsm.Coin) (string, *big.Int, error) {
	record, err := s.records.Get(key(share.Denom))
	if err != nil {
		return "", nil, err
	}
	if record == nil {
		return "", nil, errors.Wrapf(reverts.ErrSubstrate, "unknown share record %s", share.Denom)
	}
	if err := s.burn(holder, share); err != nil {
		return "", nil, err
	}
	if err := addAmount(s.delegations, pair(holder.String(), record.Validator), share.Amount); err != nil {
		return "", nil, err
	}
	return record.Validator, new(big.Int).Set(share.Amount), nil
}

func (s *Simulated) Undelegate(delegator lsm.Address, valoper string, amount *big.Int, recipient lsm.Address) error {
	if err := subAmount(s.delegations, pair(delegator.String(), valoper), amount, "delegation"); err != nil {
		return err
	}
	return addAmount(s.unbonding, key(recipient.String()), amount)
}

// Unbonding returns the amount being unbonded for recipient.
func (s *Simulated) Unbonding(recipient lsm.Address) (*big.Int, error) {
	return getAmount(s.unbonding, key(recipient.String()))
}

// CompleteUnbonding pays out every pending unbonding of recipient in the bond denom.
func (s *Simulated) CompleteUnbonding(recipient lsm.Address) (*big.Int, error) {
	amount, err := s.Unbonding(recipient)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return amount, nil
	}
	if err := setAmount(s.unbonding, key(recipient.String()), new(big.Int)); err != nil {
		return nil, err
	}
	return amount, s.Mint(recipient, lsm.NewCoin(s.bondDenom, amount))
}

// AccrueRewards adds staking rewards to a delegation.
func (s *Simulated) AccrueRewards(delegator lsm.Address, valoper string, amount *big.Int) error {
	return addAmount(s.rewards, pair(delegator.String(), valoper), amount)
}

func (s *Simulated) PendingRewards(delegator lsm.Address, valoper string) (*big.Int, error) {
	return getAmount(s.rewards, pair(delegator.String(), valoper))
}

func (s *Simulated) WithdrawRewards(delegator lsm.Address, valoper string) (*big.Int, error) {
	k := pair(delegator.String(), valoper)
	amount, err := getAmount(s.rewards, k)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return amount, nil
	}
	if err := setAmount(s.rewards, k, new(big.Int)); err != nil {
		return nil, err
	}
	return amount, s.Mint(delegator, lsm.NewCoin(s.bondDenom, amount))
}

// MintShares delegates and tokenizes amount for owner, returning the share coin.
func (s *Simulated) MintShares(owner lsm.Address, valoper string, amount *big.Int) (lsm.Coin, error) {
	if err := s.Mint(owner, lsm.NewCoin(s.bondDenom, amount)); err != nil {
		return lsm.Coin{}, err
	}
	if err := s.Delegate(owner, valoper, amount); err != nil {
		return lsm.Coin{}, err
	}
	return s.TokenizeShares(owner, valoper, amount, owner)
}

//
// Gov
//

// SetProposal creates or updates a proposal's status.
func (s *Simulated) SetProposal(id uint64, status lsm.ProposalStatus) error {
	p, err := s.proposals.Get(proposalKey(id))
	if err != nil {
		return err
	}
	if p == nil {
		p = &Proposal{}
	}
	p.Status = uint8(status)
	return s.proposals.Set(proposalKey(id), p)
}

// RemoveProposal purges a proposal.
func (s *Simulated) RemoveProposal(id uint64) error {
	return s.proposals.Set(proposalKey(id), nil)
}

func (s *Simulated) ProposalStatus(id uint64) (lsm.ProposalStatus, bool, error) {
	p, err := s.proposals.Get(proposalKey(id))
	if err != nil {
		return 0, false, err
	}
	if p == nil {
		return lsm.StatusUnspecified, false, nil
	}
	return lsm.ProposalStatus(p.Status), true, nil
}

func (s *Simulated) Vote(voter lsm.Address, id uint64, option lsm.VoteOption) error {
	if !option.Valid() {
		return errors.Wrapf(reverts.ErrUnknownVoteOption, "%d", option)
	}
	p, err := s.proposals.Get(proposalKey(id))
	if err != nil {
		return err
	}
	if p == nil || lsm.ProposalStatus(p.Status) != lsm.StatusVotingPeriod {
		return errors.Wrapf(reverts.ErrProposalNotInVoting, "proposal %d", id)
	}
	vk := pair(strconv.FormatUint(id, 10), voter.String())
	prev, err := s.votes.Get(vk)
	if err != nil {
		return err
	}
	if prev == 0 {
		p.Votes++
		if err := s.proposals.Set(proposalKey(id), p); err != nil {
			return err
		}
	}
	return s.votes.Set(vk, option)
}

// VoteOf returns the vote cast by voter, or 0.
func (s *Simulated) VoteOf(voter lsm.Address, id uint64) (lsm.VoteOption, error) {
	return s.votes.Get(pair(strconv.FormatUint(id, 10), voter.String()))
}

// VoteCount returns the number of distinct voters on a proposal.
func (s *Simulated) VoteCount(id uint64) (uint64, error) {
	p, err := s.proposals.Get(proposalKey(id))
	if err != nil || p == nil {
		return 0, err
	}
	return p.Votes, nil
}
