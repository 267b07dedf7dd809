// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package registry issues the per option sub messages of a proposal phase and
// correlates their replies back to vote options.
package registry

import (
	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/builtin/reverts"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/runtime"
)

// Batch tracks one fan-out of sub messages, one per vote option. The
// correlation token of each message is its vote option.
type Batch struct {
	phase     string
	issued    map[lsm.VoteOption]bool
	confirmed map[lsm.VoteOption]*runtime.Reply
}

// New creates a batch for the given phase name.
func New(phase string) *Batch {
	return &Batch{
		phase:     phase,
		issued:    make(map[lsm.VoteOption]bool),
		confirmed: make(map[lsm.VoteOption]*runtime.Reply),
	}
}

// Issue builds one sub message per vote option, tagging each with its option.
func (b *Batch) Issue(build func(option lsm.VoteOption) runtime.SubMsg) []runtime.SubMsg {
	msgs := make([]runtime.SubMsg, 0, len(lsm.VoteOptions))
	for _, option := range lsm.VoteOptions {
		msg := build(option)
		msg.ID = uint64(option)
		b.issued[option] = true
		msgs = append(msgs, msg)
	}
	return msgs
}

// Confirm records a reply and returns the option it belongs to. Tokens that
// were never issued, or were already confirmed, are rejected.
func (b *Batch) Confirm(reply *runtime.Reply) (lsm.VoteOption, error) {
	if reply == nil {
		return 0, errors.Wrapf(reverts.ErrUnexpectedReply, "%s: nil reply", b.phase)
	}
	if reply.ID > 0xff {
		return 0, errors.Wrapf(reverts.ErrUnexpectedReply, "%s: token %d", b.phase, reply.ID)
	}
	option := lsm.VoteOption(reply.ID)
	if !b.issued[option] {
		return 0, errors.Wrapf(reverts.ErrUnexpectedReply, "%s: token %d", b.phase, reply.ID)
	}
	if _, ok := b.confirmed[option]; ok {
		return 0, errors.Wrapf(reverts.ErrDuplicateReply, "%s: option %s", b.phase, option)
	}
	b.confirmed[option] = reply
	return option, nil
}

// Complete reports whether exactly one reply per issued option was confirmed.
func (b *Batch) Complete() bool {
	return len(b.issued) > 0 && len(b.confirmed) == len(b.issued)
}

// Confirmed returns the confirmed options in vote option order.
func (b *Batch) Confirmed() []lsm.VoteOption {
	var out []lsm.VoteOption
	for _, option := range lsm.VoteOptions {
		if _, ok := b.confirmed[option]; ok {
			out = append(out, option)
		}
	}
	return out
}

// Reply returns the confirmed reply of option, or nil.
func (b *Batch) Reply(option lsm.VoteOption) *runtime.Reply {
	return b.confirmed[option]
}
