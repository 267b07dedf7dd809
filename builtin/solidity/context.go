// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/state"
)

// Context binds typed storage helpers to one contract's storage.
type Context struct {
	address lsm.Address
	state   *state.State
}

func NewContext(address lsm.Address, state *state.State) *Context {
	return &Context{
		address: address,
		state:   state,
	}
}

func (c *Context) Address() lsm.Address {
	return c.address
}

func (c *Context) State() *state.State {
	return c.state
}
