// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package proposal

import (
	"math/big"

	"github.com/lsmpool/lsmpool/lsm"
)

// Phase is the proposal lifecycle state.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseOpening
	PhaseActive
	PhaseClosing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseOpening:
		return "opening"
	case PhaseActive:
		return "active"
	case PhaseClosing:
		return "closing"
	}
	return "unknown"
}

// LockerRef binds a vote option to its locker.
type LockerRef struct {
	Option  lsm.VoteOption `json:"option"`
	Address lsm.Address    `json:"address"`
}

// Record is the persisted proposal state. Which fields are meaningful
// depends on Phase:
//
//	Idle:    Round
//	Opening: Round, ProposalID, CodeID, Confirmed
//	Active:  Round, ProposalID, CodeID, Lockers
//	Closing: Round, ProposalID, Lockers, Confirmed, RecoveredPrincipal, RecoveredRewards
//
// Round counts opened proposals and keys the rental bookkeeping.
type Record struct {
	Phase              Phase
	Round              uint64
	ProposalID         uint64
	CodeID             uint64
	Confirmed          []lsm.VoteOption
	Lockers            []LockerRef
	RecoveredPrincipal *big.Int
	RecoveredRewards   *big.Int
}

// Locker returns the locker of option, or the empty address.
func (r *Record) Locker(option lsm.VoteOption) lsm.Address {
	for _, ref := range r.Lockers {
		if ref.Option == option {
			return ref.Address
		}
	}
	return ""
}

// idle returns the idle record following r.
func (r *Record) idle() *Record {
	return &Record{Phase: PhaseIdle, Round: r.Round}
}
