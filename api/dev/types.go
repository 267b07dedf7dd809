// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dev

import "github.com/lsmpool/lsmpool/lsm"

type MintRequest struct {
	Address lsm.Address `json:"address"`
	Denom   string      `json:"denom,omitempty"`
	Amount  *lsm.Amount `json:"amount"`
}

type SharesRequest struct {
	Owner     lsm.Address `json:"owner"`
	Validator string      `json:"validator"`
	Amount    *lsm.Amount `json:"amount"`
}

type ValidatorRequest struct {
	Validator string `json:"validator"`
}

type RewardsRequest struct {
	Delegator lsm.Address `json:"delegator"`
	Validator string      `json:"validator"`
	Amount    *lsm.Amount `json:"amount"`
}

type ProposalRequest struct {
	Status string `json:"status"`
}

type Proposal struct {
	ID     uint64 `json:"id"`
	Status string `json:"status"`
	Votes  uint64 `json:"votes"`
}

type Balance struct {
	Address   lsm.Address `json:"address"`
	Denom     string      `json:"denom"`
	Amount    *lsm.Amount `json:"amount"`
	Unbonding *lsm.Amount `json:"unbonding"`
}
