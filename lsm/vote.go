// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lsm

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/builtin/reverts"
)

// VoteOption is a governance vote option, numbered as in the gov module.
type VoteOption uint8

const (
	VoteYes        VoteOption = 1
	VoteAbstain    VoteOption = 2
	VoteNo         VoteOption = 3
	VoteNoWithVeto VoteOption = 4
)

// VoteOptions lists every option in the order lockers are created.
var VoteOptions = []VoteOption{VoteYes, VoteNo, VoteNoWithVeto, VoteAbstain}

var voteOptionNames = map[VoteOption]string{
	VoteYes:        "yes",
	VoteAbstain:    "abstain",
	VoteNo:         "no",
	VoteNoWithVeto: "no_with_veto",
}

// Valid returns whether the option is one of the four defined options.
func (o VoteOption) Valid() bool {
	_, ok := voteOptionNames[o]
	return ok
}

func (o VoteOption) String() string {
	if name, ok := voteOptionNames[o]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(o)) + ")"
}

// Bytes returns the storage key form of the option.
func (o VoteOption) Bytes() []byte {
	return []byte{byte(o)}
}

// ParseVoteOption accepts the snake case name or the numeric value.
func ParseVoteOption(s string) (VoteOption, error) {
	for o, name := range voteOptionNames {
		if name == s {
			return o, nil
		}
	}
	if n, err := strconv.ParseUint(s, 10, 8); err == nil && VoteOption(n).Valid() {
		return VoteOption(n), nil
	}
	return 0, errors.Wrapf(reverts.ErrUnknownVoteOption, "%q", s)
}

func (o VoteOption) MarshalJSON() ([]byte, error) {
	if !o.Valid() {
		return nil, errors.Wrapf(reverts.ErrUnknownVoteOption, "%d", o)
	}
	return json.Marshal(o.String())
}

func (o *VoteOption) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n uint8
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.Wrap(reverts.ErrUnknownVoteOption, string(data))
		}
		s = strconv.Itoa(int(n))
	}
	v, err := ParseVoteOption(s)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// ProposalStatus is the status of a governance proposal.
type ProposalStatus uint8

const (
	StatusUnspecified ProposalStatus = iota
	StatusDepositPeriod
	StatusVotingPeriod
	StatusPassed
	StatusRejected
	StatusFailed
)

// Finished reports whether the proposal has left the voting period for good.
func (s ProposalStatus) Finished() bool {
	return s == StatusPassed || s == StatusRejected || s == StatusFailed
}

func (s ProposalStatus) String() string {
	switch s {
	case StatusDepositPeriod:
		return "deposit_period"
	case StatusVotingPeriod:
		return "voting_period"
	case StatusPassed:
		return "passed"
	case StatusRejected:
		return "rejected"
	case StatusFailed:
		return "failed"
	default:
		return "unspecified"
	}
}

// ParseProposalStatus parses the name of a proposal status.
func ParseProposalStatus(s string) (ProposalStatus, error) {
	for status := StatusUnspecified; status <= StatusFailed; status++ {
		if status.String() == s {
			return status, nil
		}
	}
	return 0, errors.Errorf("unknown proposal status %q", s)
}
