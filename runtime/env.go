// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/state"
	"github.com/lsmpool/lsmpool/substrate"
)

// MaxCallDepth bounds nested sub messages.
const MaxCallDepth = 8

var errReadOnly = errors.New("runtime: sub messages are not allowed in queries")

// Env is the execution environment of one contract invocation. Nested
// invocations share the state, the substrate and the event list.
type Env struct {
	rt       *Runtime
	state    *state.State
	sim      *substrate.Simulated
	block    BlockInfo
	self     lsm.Address
	depth    int
	readOnly bool
	events   *[]*Event
}

// Self returns the address of the running contract.
func (e *Env) Self() lsm.Address { return e.self }

// State returns the request state.
func (e *Env) State() *state.State { return e.state }

// Block returns the height and time of the execution.
func (e *Env) Block() BlockInfo { return e.block }

func (e *Env) Bank() substrate.Bank       { return e.sim }
func (e *Env) Staking() substrate.Staking { return e.sim }
func (e *Env) Gov() substrate.Gov         { return e.sim }

// Instance returns the instance record of addr, or nil.
func (e *Env) Instance(addr lsm.Address) (*Instance, error) {
	return e.rt.registry(e.state).instances.Get(addr)
}

func (e *Env) child(self lsm.Address) *Env {
	return &Env{
		rt:       e.rt,
		state:    e.state,
		sim:      e.sim,
		block:    e.block,
		self:     self,
		depth:    e.depth + 1,
		readOnly: e.readOnly,
		events:   e.events,
	}
}

// Dispatch runs sub messages in order on behalf of the running contract and
// returns one reply per message. The first failure aborts the dispatch; the
// caller is expected to fail too, so the whole request is reverted.
func (e *Env) Dispatch(msgs ...SubMsg) ([]*Reply, error) {
	if e.readOnly {
		return nil, errReadOnly
	}
	if e.depth >= MaxCallDepth {
		return nil, errors.Errorf("runtime: max call depth %d exceeded", MaxCallDepth)
	}
	replies := make([]*Reply, 0, len(msgs))
	for _, msg := range msgs {
		var (
			reply *Reply
			err   error
		)
		switch {
		case msg.Instantiate != nil:
			reply, err = e.instantiate(msg.Instantiate)
		case msg.Execute != nil:
			reply, err = e.execute(msg.Execute)
		default:
			err = errors.New("runtime: empty sub message")
		}
		if err != nil {
			return nil, err
		}
		reply.ID = msg.ID
		replies = append(replies, reply)
	}
	return replies, nil
}

func (e *Env) instantiate(msg *InstantiateMsg) (*Reply, error) {
	addr, res, err := e.rt.instantiate(e, e.self, msg)
	if err != nil {
		return nil, err
	}
	return &Reply{Address: addr, Response: res}, nil
}

func (e *Env) execute(msg *ExecuteMsg) (*Reply, error) {
	res, err := e.rt.execute(e, e.self, msg)
	if err != nil {
		return nil, err
	}
	return &Reply{Address: msg.Contract, Response: res}, nil
}

func (e *Env) emit(contract lsm.Address, events []*Event) {
	for _, ev := range events {
		ev.Contract = contract
		*e.events = append(*e.events, ev)
	}
}
