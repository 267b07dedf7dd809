// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package locker

import (
	"math/big"

	"github.com/lsmpool/lsmpool/lsm"
)

// InstantiateMsg configures a locker. The instantiating contract becomes its owner.
type InstantiateMsg struct {
	ProposalID uint64         `json:"proposal_id"`
	Option     lsm.VoteOption `json:"option"`
	// Validator restricts accepted shares. Empty accepts any validator.
	Validator string   `json:"validator,omitempty"`
	Prefixes  []string `json:"prefixes,omitempty"`
}

// ExecuteMsg is the locker message envelope. Exactly one field is set.
type ExecuteMsg struct {
	ReceiveShares *struct{} `json:"receive_shares,omitempty"`
	Destroy       *struct{} `json:"destroy,omitempty"`
}

// QueryMsg is the locker query envelope. Exactly one field is set.
type QueryMsg struct {
	Config           *struct{} `json:"config,omitempty"`
	TotalVotingPower *struct{} `json:"total_voting_power,omitempty"`
}

// Config is the stored locker configuration.
type Config struct {
	Owner      lsm.Address    `json:"owner"`
	ProposalID uint64         `json:"proposal_id"`
	Option     lsm.VoteOption `json:"option"`
	Validator  string         `json:"validator,omitempty"`
	Prefixes   []string       `json:"prefixes,omitempty"`
}

// ConfigResponse answers the config query.
type ConfigResponse struct {
	Config
	Voted     bool `json:"voted"`
	Destroyed bool `json:"destroyed"`
}

// VotingPowerResponse answers the total voting power query.
type VotingPowerResponse struct {
	Amount *lsm.Amount `json:"amount"`
}

// DestroyReply is the data of a Destroy response: what was flushed to the owner.
type DestroyReply struct {
	Option    lsm.VoteOption `json:"option"`
	Principal *big.Int       `json:"principal"`
	Rewards   *big.Int       `json:"rewards"`
	Shares    lsm.Coins      `json:"shares"`
}
