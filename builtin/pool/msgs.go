// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"github.com/lsmpool/lsmpool/builtin/ledger"
	"github.com/lsmpool/lsmpool/builtin/proposal"
	"github.com/lsmpool/lsmpool/decimal"
	"github.com/lsmpool/lsmpool/lsm"
)

// InstantiateMsg configures a pool. An empty owner defaults to the sender.
type InstantiateMsg struct {
	Owner        lsm.Address `json:"owner,omitempty"`
	StakingDenom string      `json:"staking_denom,omitempty"`
	Validator    string      `json:"validator,omitempty"`
	MaxCap       *lsm.Amount `json:"max_cap,omitempty"`
	Prefixes     []string    `json:"prefixes,omitempty"`
}

// ExecuteMsg is the pool message envelope. Exactly one field is set.
type ExecuteMsg struct {
	Deposit         *struct{}        `json:"deposit,omitempty"`
	DepositRewards  *struct{}        `json:"deposit_rewards,omitempty"`
	ClaimRewards    *struct{}        `json:"claim_rewards,omitempty"`
	Withdraw        *WithdrawMsg     `json:"withdraw,omitempty"`
	OpenProposal    *OpenProposalMsg `json:"open_proposal,omitempty"`
	RentVotingPower *RentMsg         `json:"rent_voting_power,omitempty"`
	CloseProposal   *struct{}        `json:"close_proposal,omitempty"`
	UpdateConfig    *UpdateConfigMsg `json:"update_config,omitempty"`
}

type WithdrawMsg struct {
	Amount    *lsm.Amount `json:"amount"`
	Validator string      `json:"validator,omitempty"`
	// Mode is "tokenize" (default) or "undelegate".
	Mode string `json:"mode,omitempty"`
}

type OpenProposalMsg struct {
	ProposalID uint64 `json:"proposal_id"`
	CodeID     uint64 `json:"code_id"`
}

type RentMsg struct {
	Amount *lsm.Amount    `json:"amount"`
	Option lsm.VoteOption `json:"option"`
}

type UpdateConfigMsg struct {
	Owner  *lsm.Address `json:"owner,omitempty"`
	MaxCap *lsm.Amount  `json:"max_cap,omitempty"`
}

// QueryMsg is the pool query envelope. Exactly one field is set.
type QueryMsg struct {
	Config      *struct{}      `json:"config,omitempty"`
	StakerInfo  *StakerInfoMsg `json:"staker_info,omitempty"`
	TotalStaked *struct{}      `json:"total_staked,omitempty"`
	RewardIndex *struct{}      `json:"reward_index,omitempty"`
	Stakers     *StakersMsg    `json:"stakers,omitempty"`
	Proposal    *struct{}      `json:"proposal,omitempty"`
}

type StakerInfoMsg struct {
	Address lsm.Address `json:"address"`
}

type StakersMsg struct {
	StartAfter lsm.Address `json:"start_after,omitempty"`
	Limit      int         `json:"limit,omitempty"`
}

type ConfigResponse struct {
	Owner        lsm.Address `json:"owner"`
	StakingDenom string      `json:"staking_denom"`
	Validator    string      `json:"validator,omitempty"`
	MaxCap       *lsm.Amount `json:"max_cap"`
	Prefixes     []string    `json:"prefixes"`
}

type TotalStakedResponse struct {
	TotalStaked *lsm.Amount `json:"total_staked"`
	Unassigned  *lsm.Amount `json:"unassigned"`
}

type RewardIndexResponse struct {
	RewardIndex decimal.Dec `json:"reward_index"`
}

type StakersResponse struct {
	Stakers []*ledger.StakerInfo `json:"stakers"`
}

type ProposalResponse struct {
	Phase      string               `json:"phase"`
	Round      uint64               `json:"round"`
	ProposalID uint64               `json:"proposal_id,omitempty"`
	Lockers    []proposal.LockerRef `json:"lockers"`
}

// WithdrawResponse is the data of a withdraw: the share sent to the staker,
// when tokenized.
type WithdrawResponse struct {
	Share *lsm.Coin `json:"share,omitempty"`
}
